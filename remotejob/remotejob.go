// Package remotejob encapsulates sending messages to remote services such as Pub/Sub.
//
// Events are informational: publishing is best effort and never fails the
// request that produced the event.
package remotejob

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "swipeserver/cloudlog"

	"cloud.google.com/go/pubsub"
)

const (
	// EventMatchCreated is published when two users like each other.
	EventMatchCreated = "match_created"
	// EventMessageSent is published when a chat message is stored.
	EventMessageSent = "message_sent"

	// Attribute carrying the event type, for subscription filters.
	eventTypeAttribute = "event_type"
)

// Event is the JSON payload of every published message.
type Event struct {
	Type           string    `json:"type"`
	UserID         string    `json:"userId"`
	TargetID       string    `json:"targetId"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId,omitempty"`
	Time           time.Time `json:"time"`
}

// Publisher sends events to a Pub/Sub topic. A nil *Publisher, or one without a
// topic, drops every event, which is how publishing is turned off.
type Publisher struct {
	topic    *pubsub.Topic
	requests *requestPool
}

// NewPublisher publishes to topicID through client. An empty topicID gives a
// Publisher that drops everything.
func NewPublisher(client *pubsub.Client, topicID string) *Publisher {
	if client == nil || topicID == "" {
		return &Publisher{}
	}
	return &Publisher{
		topic:    client.Topic(topicID),
		requests: &requestPool{},
	}
}

// MatchCreated publishes an EventMatchCreated.
func (p *Publisher) MatchCreated(ctx context.Context, userID, targetID, conversationID string) {
	p.publish(ctx, Event{
		Type:           EventMatchCreated,
		UserID:         userID,
		TargetID:       targetID,
		ConversationID: conversationID,
	})
}

// MessageSent publishes an EventMessageSent.
func (p *Publisher) MessageSent(ctx context.Context, senderID, recipientID, conversationID, messageID string) {
	p.publish(ctx, Event{
		Type:           EventMessageSent,
		UserID:         senderID,
		TargetID:       recipientID,
		ConversationID: conversationID,
		MessageID:      messageID,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	if p == nil || p.topic == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling event %#v, reason: %s", event, err.Error())
		return
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{eventTypeAttribute: event.Type},
	})
	p.requests.add(event.Type, result)
}

// Close waits for outstanding publishes and stops the topic's goroutines.
func (p *Publisher) Close() {
	if p == nil || p.topic == nil {
		return
	}
	p.requests.wait()
	p.topic.Stop()
}

// requestPool tracks in-flight publishes so failures get logged and Close can wait for them.
type requestPool struct {
	wg sync.WaitGroup
}

func (rp *requestPool) add(eventType string, result *pubsub.PublishResult) {
	rp.wg.Add(1)
	go func() {
		defer rp.wg.Done()
		// The request context may already be gone; the publish itself is buffered by the client.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := result.Get(ctx); err != nil {
			log.Printf("Failed to publish %s event: %v", eventType, err)
		}
	}()
}

func (rp *requestPool) wait() {
	rp.wg.Wait()
}
