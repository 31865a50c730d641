// Package notify delivers push notifications for matches and messages.
//
// Delivery is synchronous and at-most-once: nothing is retried, and a failed
// delivery never undoes the write that triggered it.
package notify

import (
	"context"
	"errors"
	"unicode/utf8"

	log "swipeserver/cloudlog"
)

const (
	// Maximum number of characters of a chat message copied into a notification body.
	maxBodyLength = 100

	// DataTypeKey tells the client which screen a notification opens.
	DataTypeKey = "type"
	// DataTypeMatch marks a new match notification.
	DataTypeMatch = "match"
	// DataTypeMessage marks a new message notification.
	DataTypeMessage = "message"
)

var (
	// ErrNoToken is given when the recipient never registered a push token.
	// Callers treat it as "not notified", never as a failure.
	ErrNoToken = errors.New("recipient has no notification token")
)

// Message is a single push notification to one device.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Result describes an accepted notification.
type Result struct {
	// Provider is the name of the gateway that accepted the notification.
	Provider string `json:"provider"`
	// ID is the gateway's id for the notification, if it returns one.
	ID string `json:"id,omitempty"`
}

// Sender talks to one push gateway.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}

// Dispatcher is what the rest of the server uses to notify users.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher returns a Dispatcher delivering through sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Send delivers one notification. An empty token gives ErrNoToken.
func (d *Dispatcher) Send(ctx context.Context, token, title, body string, data map[string]string) (*Result, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	result, err := d.sender.Send(ctx, &Message{
		Token: token,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		log.Printf("Failed to send push notification %q: %v", title, err)
		return nil, err
	}
	return result, nil
}

// MatchNotification builds the title and body sent to a user who was just matched.
func MatchNotification(matchedName string) (string, string) {
	if matchedName == "" {
		return "It's a match!", "You have a new match"
	}
	return "It's a match!", "You matched with " + matchedName
}

// MessageNotification builds the title and body sent for a new chat message.
func MessageNotification(senderName, text string) (string, string) {
	if senderName == "" {
		senderName = "Someone"
	}
	return senderName + " sent a message", truncate(text, maxBodyLength)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
