package queue

import (
	"fmt"
	"strings"
	"time"
)

// EventQueueName is the durable queue downstream consumers (audit sinks,
// webhooks) read finalized dispatch events from.
const EventQueueName = "notify.dispatch.events"

// DispatchEvent is the broker payload emitted after a dispatch is finalized
// and its history record persisted.
type DispatchEvent struct {
	DispatchID     string    `json:"dispatchId"`
	SentBy         string    `json:"sentBy"`
	TotalSent      int       `json:"totalSent"`
	TotalDelivered int       `json:"totalDelivered"`
	TotalFailed    int       `json:"totalFailed"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e DispatchEvent) Validate() error {
	if strings.TrimSpace(e.DispatchID) == "" {
		return fmt.Errorf("dispatchId is required")
	}
	if strings.TrimSpace(e.SentBy) == "" {
		return fmt.Errorf("sentBy is required")
	}
	if e.TotalDelivered+e.TotalFailed != e.TotalSent {
		return fmt.Errorf("totals are inconsistent: %d delivered + %d failed != %d sent",
			e.TotalDelivered, e.TotalFailed, e.TotalSent)
	}
	return nil
}
