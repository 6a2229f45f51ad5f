package ports

import "lego-filestore/internal/infrastructure/mq"

// EventPublisher never blocks the caller; events are dropped when the
// outgoing buffer is full.
type EventPublisher interface {
	Publish(e mq.Event)
}
