package remotejob

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	conn, err := grpc.Dial(srv.Addr, grpc.WithInsecure())
	if err != nil {
		t.Fatalf("grpc.Dial err: %v", err)
	}
	client, err := pubsub.NewClient(context.Background(), "test", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("pubsub.NewClient err: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		srv.Close()
	})
	return client, srv
}

func TestPublisherDisabled(t *testing.T) {
	var nilPublisher *Publisher
	// Neither call may panic.
	nilPublisher.MatchCreated(context.Background(), "a", "b", "_a_b")
	nilPublisher.Close()

	p := NewPublisher(nil, "topic")
	p.MessageSent(context.Background(), "a", "b", "_a_b", "m1")
	p.Close()
}

func TestPublisherPublishes(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)
	if _, err := client.CreateTopic(ctx, "swipe_events"); err != nil {
		t.Fatalf("CreateTopic err: %v", err)
	}

	p := NewPublisher(client, "swipe_events")
	p.MatchCreated(ctx, "user_3", "user_1", "_user_1_user_3")
	p.MessageSent(ctx, "user_1", "user_3", "_user_1_user_3", "m1")
	p.Close()

	msgs := srv.Messages()
	if len(msgs) != 2 {
		t.Fatalf("server got %d messages, want 2", len(msgs))
	}
	seen := map[string]Event{}
	for _, m := range msgs {
		event := Event{}
		if err := json.Unmarshal(m.Data, &event); err != nil {
			t.Fatalf("could not decode event: %v", err)
		}
		if m.Attributes[eventTypeAttribute] != event.Type {
			t.Errorf("attribute %q does not match event type %q", m.Attributes[eventTypeAttribute], event.Type)
		}
		seen[event.Type] = event
	}
	if got := seen[EventMatchCreated]; got.UserID != "user_3" || got.ConversationID != "_user_1_user_3" {
		t.Errorf("match event = %+v", got)
	}
	if got := seen[EventMessageSent]; got.MessageID != "m1" {
		t.Errorf("message event = %+v", got)
	}
}
