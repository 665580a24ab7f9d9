package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	TypeQueue = "queue"
	TypeHTTP  = "http"
)

// Queue providers.
const (
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

type fileLayout struct {
	Publishers []Config `json:"publishers" yaml:"publishers"`
}

// Config declares one snapshot sink.
type Config struct {
	ID      string       `json:"id" yaml:"id"`
	Type    string       `json:"type" yaml:"type"`
	Enabled *bool        `json:"enabled" yaml:"enabled"`
	Queue   *QueueConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPConfig  `json:"http" yaml:"http"`
}

// QueueConfig selects a cloud messaging provider.
type QueueConfig struct {
	Provider string        `json:"provider" yaml:"provider"`
	SQS      *SQSConfig    `json:"sqs" yaml:"sqs"`
	SNS      *SNSConfig    `json:"sns" yaml:"sns"`
	GCP      *PubSubConfig `json:"gcp" yaml:"gcp"`
}

// AWSCredentials are optional static keys. When both are empty the default
// AWS credential chain is used.
type AWSCredentials struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

type SQSConfig struct {
	QueueURL       string `json:"queue_url" yaml:"queue_url"`
	AWSCredentials `yaml:",inline"`
}

type SNSConfig struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	AWSCredentials `yaml:",inline"`
}

type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPConfig posts snapshots to a webhook.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// IsEnabled defaults to true when the flag is absent.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadFile reads sink declarations from a YAML or JSON file. ${VAR}
// references are expanded from the environment before decoding.
func LoadFile(path string) ([]Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	layout, err := decode([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(layout.Publishers) == 0 {
		return nil, errors.New("publishers file declares no publishers")
	}

	seen := make(map[string]struct{}, len(layout.Publishers))
	out := make([]Config, 0, len(layout.Publishers))
	for i, cfg := range layout.Publishers {
		cfg = sanitize(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

// Enabled filters out disabled sinks.
func Enabled(cfgs []Config) []Config {
	out := make([]Config, 0, len(cfgs))
	for _, c := range cfgs {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

func decode(data []byte, ext string) (fileLayout, error) {
	var layout fileLayout

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &layout); err != nil {
			return fileLayout{}, fmt.Errorf("decode json publishers: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &layout); err != nil {
			return fileLayout{}, fmt.Errorf("decode yaml publishers: %w", err)
		}
	default:
		return fileLayout{}, fmt.Errorf("publishers file extension %q not supported (expected YAML or JSON)", ext)
	}
	return layout, nil
}

func sanitize(cfg Config) Config {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if q := cfg.Queue; q != nil {
		qc := *q
		qc.Provider = strings.ToLower(strings.TrimSpace(qc.Provider))
		if qc.SQS != nil {
			s := *qc.SQS
			s.QueueURL = strings.TrimSpace(s.QueueURL)
			s.AWSCredentials = s.AWSCredentials.trimmed()
			qc.SQS = &s
		}
		if qc.SNS != nil {
			s := *qc.SNS
			s.TopicARN = strings.TrimSpace(s.TopicARN)
			s.AWSCredentials = s.AWSCredentials.trimmed()
			qc.SNS = &s
		}
		if qc.GCP != nil {
			g := *qc.GCP
			g.ProjectID = strings.TrimSpace(g.ProjectID)
			g.Topic = strings.TrimSpace(g.Topic)
			g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
			qc.GCP = &g
		}
		cfg.Queue = &qc
	}

	if h := cfg.HTTP; h != nil {
		hc := *h
		hc.URL = strings.TrimSpace(hc.URL)
		hc.Method = strings.ToUpper(strings.TrimSpace(hc.Method))
		if hc.Method == "" {
			hc.Method = httpDefaultMethod
		}
		if hc.TimeoutSeconds <= 0 {
			hc.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		headers := make(map[string]string, len(hc.Headers))
		for k, v := range hc.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		hc.Headers = headers
		cfg.HTTP = &hc
	}

	return cfg
}

func (c AWSCredentials) trimmed() AWSCredentials {
	return AWSCredentials{
		Region:          strings.TrimSpace(c.Region),
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
	}
}

func (c AWSCredentials) validate(prefix string) error {
	if c.Region == "" {
		return fmt.Errorf("%s.region is required", prefix)
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together", prefix, prefix)
	}
	return nil
}

// Validate checks that the fields required by the sink type are present.
func (c Config) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}

	switch c.Type {
	case TypeHTTP:
		if c.HTTP == nil || c.HTTP.URL == "" {
			return fmt.Errorf("publisher %q: http.url is required", c.ID)
		}
	case TypeQueue:
		if c.Queue == nil {
			return fmt.Errorf("publisher %q: queue config is required", c.ID)
		}
		if err := c.Queue.validate(); err != nil {
			return fmt.Errorf("publisher %q: %w", c.ID, err)
		}
	case "":
		return fmt.Errorf("publisher %q: type is required", c.ID)
	default:
		return fmt.Errorf("publisher %q: type %q not supported", c.ID, c.Type)
	}
	return nil
}

func (q QueueConfig) validate() error {
	switch q.Provider {
	case QueueProviderAWSSQS:
		if q.SQS == nil || q.SQS.QueueURL == "" {
			return errors.New("sqs.queue_url is required")
		}
		return q.SQS.AWSCredentials.validate("sqs")
	case QueueProviderAWSSNS:
		if q.SNS == nil || q.SNS.TopicARN == "" {
			return errors.New("sns.topic_arn is required")
		}
		return q.SNS.AWSCredentials.validate("sns")
	case QueueProviderGCP:
		if q.GCP == nil || q.GCP.ProjectID == "" || q.GCP.Topic == "" {
			return errors.New("gcp.project_id and gcp.topic are required")
		}
		return nil
	default:
		return fmt.Errorf("queue provider %q not supported", q.Provider)
	}
}
