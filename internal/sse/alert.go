package sse

import "time"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Alert is a banner shown by the operator UI and dismissed automatically
// after DismissAfterMS; zero means it stays until closed.
type Alert struct {
	Level          Level     `json:"level"`
	Message        string    `json:"message"`
	DismissAfterMS int64     `json:"dismiss_after_ms"`
	At             time.Time `json:"at"`
}

// Alerter publishes alerts with a fixed auto-dismiss delay.
type Alerter struct {
	svc          *Service
	dismissAfter time.Duration
}

func NewAlerter(svc *Service, dismissAfter time.Duration) *Alerter {
	return &Alerter{svc: svc, dismissAfter: dismissAfter}
}

// Publish forwards a raw event.
func (a *Alerter) Publish(event Event) {
	a.svc.Publish(event)
}

// Alert publishes an alert banner.
func (a *Alerter) Alert(level Level, message string) {
	a.svc.Publish(Event{
		Type: EventAlert,
		Data: Alert{
			Level:          level,
			Message:        message,
			DismissAfterMS: a.dismissAfter.Milliseconds(),
			At:             time.Now().UTC(),
		},
	})
}
