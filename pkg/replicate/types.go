package replicate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Normalized prediction states. The provider also reports "canceled", which is folded into StateFailed.
const (
	StateStarting   = "starting"
	StateProcessing = "processing"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"

	statusCanceled = "canceled"
)

// Prediction is the provider's view of a generation job. The same document is returned by
// GET /v1/predictions/{id} and pushed to the webhook.
type Prediction struct {
	ID          string            `json:"id"`
	Version     string            `json:"version,omitempty"`
	Status      string            `json:"status"`
	Output      json.RawMessage   `json:"output,omitempty"`
	Error       json.RawMessage   `json:"error,omitempty"`
	Logs        string            `json:"logs,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	URLs        map[string]string `json:"urls,omitempty"`
}

// State maps the raw provider status onto the four states the engine understands.
// Unknown statuses are treated as still running.
func (p *Prediction) State() string {
	switch p.Status {
	case StateSucceeded:
		return StateSucceeded
	case StateFailed, statusCanceled:
		return StateFailed
	case StateStarting:
		return StateStarting
	default:
		return StateProcessing
	}
}

// IsTerminal reports whether the provider will not change this prediction any more.
func (p *Prediction) IsTerminal() bool {
	s := p.State()
	return s == StateSucceeded || s == StateFailed
}

// OutputURL returns the first usable output reference. The model either returns a single
// URL string or a list of URLs depending on its version.
func (p *Prediction) OutputURL() string {
	if len(p.Output) == 0 || string(p.Output) == "null" {
		return ""
	}

	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		return single
	}

	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil {
		for _, u := range list {
			if u != "" {
				return u
			}
		}
	}
	return ""
}

// ErrorMessage flattens the provider error, which is usually a string but occasionally an object.
func (p *Prediction) ErrorMessage() string {
	if len(p.Error) == 0 || string(p.Error) == "null" {
		return ""
	}

	var msg string
	if err := json.Unmarshal(p.Error, &msg); err == nil {
		return msg
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(p.Error, &obj); err == nil {
		if detail, ok := obj["detail"].(string); ok {
			return detail
		}
	}
	return string(p.Error)
}

// Snapshot is the raw JSON persisted next to the design for diagnostics.
func (p *Prediction) Snapshot() []byte {
	b, err := json.Marshal(p)
	if err != nil {
		return []byte(fmt.Sprintf(`{"id":%q,"status":%q}`, p.ID, p.Status))
	}
	return b
}

type predictionInput struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type createPredictionRequest struct {
	Version             string          `json:"version"`
	Input               predictionInput `json:"input"`
	Webhook             string          `json:"webhook,omitempty"`
	WebhookEventsFilter []string        `json:"webhook_events_filter,omitempty"`
}
