package models

const (
	EventDocketProcessed = "docket.processed"
	EventAlertCreated    = "alert.created"
)

type Webhook struct {
	ID              string   `json:"id"`
	TenantID        string   `json:"tenant_id"`
	URL             string   `json:"url"`
	Events          []string `json:"events"`
	Secret          string   `json:"secret,omitempty"`
	Status          string   `json:"status"` // active, paused
	RetryCount      int      `json:"retry_count"`
	LastTriggeredAt int64    `json:"last_triggered_at,omitempty"`
	LastError       string   `json:"last_error,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

func (w *Webhook) Subscribed(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	TenantID  string      `json:"tenant_id"`
	Data      interface{} `json:"data"`
}
