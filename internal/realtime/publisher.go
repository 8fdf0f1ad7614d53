// Package realtime carries best-effort push events to connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// FeedTopic is the broadcast topic every connection subscribes to.
const FeedTopic = "feed"

// Event names pushed to clients.
const (
	EventNewNotification = "newNotification"
	EventNewStory        = "newStory"
	EventNewChapter      = "newChapter"
)

// UserTopic is the per-recipient topic for notification pushes.
func UserTopic(userID string) string {
	return "user:" + userID
}

// Event is the JSON frame written to sockets.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Publisher pushes an event on a topic. Delivery is at-most-once; an error
// means the event was not handed off, never that a client missed it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// Deliverer accepts an already encoded frame for a topic.
type Deliverer interface {
	Deliver(topic string, payload []byte)
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Name, err)
	}
	return payload, nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, event Event) error {
	return nil
}
