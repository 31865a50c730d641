// Package conversation stores and streams the messages exchanged by matched users.
package conversation

import (
	"context"
	"errors"
	"strings"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
	"swipeserver/collections"
	"swipeserver/match"
	"swipeserver/notify"
	"swipeserver/storage"
)

// Store is the part of *storage.Store the conversation service uses.
type Store interface {
	User(ctx context.Context, userID string) (*collections.UserEntry, error)
	Messages(ctx context.Context, conversationID string) ([]collections.MessageEntry, error)
	AddMessage(ctx context.Context, conversationID, senderID, recipientID, text string) (string, error)
	WatchMessages(ctx context.Context, conversationID string, fn func(collections.MessageEntry) error) error
}

// Events receives message events for asynchronous consumers.
type Events interface {
	MessageSent(ctx context.Context, senderID, recipientID, conversationID, messageID string)
}

// Service implements reading, sending and watching conversations.
type Service struct {
	db       Store
	notifier match.Notifier
	events   Events
	prefix   string
}

// NewService returns a Service. prefix must be the one the match engine uses.
func NewService(db Store, notifier match.Notifier, events Events, prefix string) *Service {
	return &Service{db: db, notifier: notifier, events: events, prefix: prefix}
}

// authorize checks that userID may talk to targetID and returns the caller's
// document and their conversation id.
func (s *Service) authorize(ctx context.Context, userID, targetID string) (*collections.UserEntry, string, error) {
	if targetID == "" {
		return nil, "", apicodes.Errorf(apicodes.BadRequest, apicodes.MsgTargetRequired)
	}
	user, err := s.db.User(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", apicodes.Errorf(apicodes.NotFound, apicodes.MsgUserNotFound)
		}
		return nil, "", apicodes.Wrap(err, "loading user %s", userID)
	}
	if !user.MatchedWith(targetID) {
		return nil, "", apicodes.Errorf(apicodes.Forbidden, apicodes.MsgNotMatched)
	}
	return user, match.ConversationID(userID, targetID, s.prefix), nil
}

// Get returns the conversation between userID and targetID, oldest message first.
func (s *Service) Get(ctx context.Context, userID, targetID string) ([]collections.MessageEntry, error) {
	_, convoID, err := s.authorize(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	messages, err := s.db.Messages(ctx, convoID)
	if err != nil {
		return nil, apicodes.Wrap(err, "loading conversation %s", convoID)
	}
	return messages, nil
}

// Send stores a message from userID to targetID and returns its id. The
// recipient is notified on a best effort basis.
func (s *Service) Send(ctx context.Context, userID, targetID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apicodes.Errorf(apicodes.BadRequest, apicodes.MsgEmptyMessage)
	}
	user, convoID, err := s.authorize(ctx, userID, targetID)
	if err != nil {
		return "", err
	}
	msgID, err := s.db.AddMessage(ctx, convoID, userID, targetID, text)
	if err != nil {
		return "", apicodes.Wrap(err, "storing message in %s", convoID)
	}

	s.events.MessageSent(ctx, userID, targetID, convoID, msgID)
	s.notifyRecipient(ctx, user, targetID, convoID, text)
	return msgID, nil
}

func (s *Service) notifyRecipient(ctx context.Context, sender *collections.UserEntry, recipientID, convoID, text string) {
	recipient, err := s.db.User(ctx, recipientID)
	if err != nil {
		log.Printf("Could not load recipient %s of %s: %v", recipientID, convoID, err)
		return
	}
	title, body := notify.MessageNotification(sender.Settings.FirstName, text)
	_, err = s.notifier.Send(ctx, recipient.NotificationToken, title, body, map[string]string{
		notify.DataTypeKey: notify.DataTypeMessage,
		"senderID":         sender.ID,
		"conversationID":   convoID,
	})
	if err != nil && !errors.Is(err, notify.ErrNoToken) {
		log.Printf("Message notification to %s failed: %v", recipientID, err)
	}
}

// Watch calls fn with every message added to the conversation from now on,
// until ctx is done or fn fails.
func (s *Service) Watch(ctx context.Context, userID, targetID string, fn func(collections.MessageEntry) error) error {
	_, convoID, err := s.authorize(ctx, userID, targetID)
	if err != nil {
		return err
	}
	return s.db.WatchMessages(ctx, convoID, fn)
}

// Authorize reports whether userID may open the live stream to targetID,
// before the caller commits to a websocket upgrade.
func (s *Service) Authorize(ctx context.Context, userID, targetID string) error {
	_, _, err := s.authorize(ctx, userID, targetID)
	return err
}
