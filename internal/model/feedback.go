package model

import "time"

// FeedbackEvent is one entry in the append-only verification audit log.
// An empty NewCategory records an explicit unverify. The full history is
// retained; the latest event per transaction is the training-set truth.
type FeedbackEvent struct {
	Timestamp        time.Time
	TransactionID    string
	PreviousCategory string
	NewCategory      string
	ID               int64
}

// IsUnverify reports whether this event removed a verification.
func (e *FeedbackEvent) IsUnverify() bool {
	return e.NewCategory == ""
}
