package services

import (
	"encoding/json"
	"log"
)

// Event routing keys published to the gamification queue.
const (
	EventUserRegistered = "user.registered"
	EventSessionStarted = "session.started"
	EventUserLeveledUp  = "user.leveled_up"
)

// EventPublisher publishes domain events. Implemented by rabbitmq.Client;
// services tolerate a nil publisher.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// publishEvent marshals and publishes an event. Publishing is best-effort:
// failures are logged, never propagated to the request flow.
func publishEvent(p EventPublisher, routingKey string, payload map[string]interface{}) {
	if p == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := p.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
