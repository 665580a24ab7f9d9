package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

type handlers struct {
	ctrl Controller
}

type queryRequest struct {
	Query *string `json:"query"`
}

type sourceRequest struct {
	Source *string `json:"source"`
}

type filterRequest struct {
	Text *string `json:"text"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) news(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *handlers) setQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeStrict(w, r, &req); err != nil || req.Query == nil {
		writeError(w, http.StatusBadRequest, errOr(err, "query is required"))
		return
	}
	h.ctrl.SetQuery(*req.Query)
	writeJSON(w, http.StatusAccepted, h.ctrl.View())
}

func (h *handlers) setSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeStrict(w, r, &req); err != nil || req.Source == nil {
		writeError(w, http.StatusBadRequest, errOr(err, "source is required"))
		return
	}
	h.ctrl.SetSelectedSource(*req.Source)
	writeJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *handlers) setFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeStrict(w, r, &req); err != nil || req.Text == nil {
		writeError(w, http.StatusBadRequest, errOr(err, "text is required"))
		return
	}
	h.ctrl.SetFilterText(*req.Text)
	writeJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *handlers) retry(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Retry()
	writeJSON(w, http.StatusAccepted, h.ctrl.View())
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeStrict rejects unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func errOr(err error, msg string) error {
	if err != nil {
		return err
	}
	return errors.New(msg)
}
