// Package queue defines message payloads exchanged over RabbitMQ and the
// publisher for them.
package queue

import "time"

// SnapshotCreatedEvent is published after a price snapshot commits.
type SnapshotCreatedEvent struct {
	EventID       string    `json:"event_id"`
	BookingID     uint      `json:"booking_id"`
	SnapshotID    uint      `json:"snapshot_id"`
	Version       int       `json:"version"`
	Source        string    `json:"source"`
	PreviousTotal *float64  `json:"previous_total"`
	CurrentTotal  *float64  `json:"current_total"`
	CreatedBy     *uint     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// RepriceRequest asks for a fresh calculator snapshot of one booking.
type RepriceRequest struct {
	MessageID string  `json:"message_id"`
	BookingID uint    `json:"booking_id"`
	ActorID   *uint   `json:"actor_id"`
	Note      *string `json:"note"`
}
