package events

import "context"

// Domain event codes.
const (
	DesignSubmitted  = "DESIGN_SUBMITTED"
	DesignCompleted  = "DESIGN_COMPLETED"
	DesignFailed     = "DESIGN_FAILED"
	CreditsPurchased = "CREDITS_PURCHASED"
)

// NopPublisher drops every event. Used when no bus is reachable.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
