// Package queue defines the lifecycle event payloads exchanged over
// the message broker and the background consumer that records them.
package queue

// LifecycleQueueName is the durable queue SCAR lifecycle events travel
// on. Downstream systems (supplier scorecards, reporting) consume the
// same queue.
const LifecycleQueueName = "scar.lifecycle"

// ScarLifecycleEvent is published after every successful workflow
// transition or creation. It carries enough context for downstream
// consumers to act without querying the primary database.
type ScarLifecycleEvent struct {
	ScarID     string `json:"scar_id"`
	ScarNumber string `json:"scar_number"`
	Action     string `json:"action"` // created/submitted/closed/returned/reopened
	Status     string `json:"status"`
	Severity   string `json:"severity"`
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	ActorID    string `json:"actor_id"`
	OccurredAt string `json:"occurred_at"` // RFC 3339
}
