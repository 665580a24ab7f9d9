package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWithParamsSendsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gpt", r.URL.Query().Get("q"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		assert.Contains(t, r.Header.Get("User-Agent"), "ainews")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	c := NewRestyClient(time.Second)
	resp, err := c.GetWithParams(context.Background(), srv.URL, map[string]string{"q": "gpt"}, map[string]string{"X-Test": "yes"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode())
	assert.Equal(t, "short and stout", string(resp.Body()))
}

func TestGetHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRestyClient(5*time.Second).GetWithParams(ctx, srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestGetStreamLeavesBodyUnread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	resp, err := NewRestyClient(time.Second).GetStream(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	body := resp.RawBody()
	require.NotNil(t, body)
	defer body.Close()

	assert.Empty(t, resp.Body())
	head, err := io.ReadAll(io.LimitReader(body, 4))
	require.NoError(t, err)
	assert.Equal(t, "0123", string(head))
}
