// Package match records likes, turns mutual likes into matches and decides who
// a user is shown next.
package match

import (
	"context"
	"errors"
	"sort"
	"strings"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
	"swipeserver/collections"
	"swipeserver/notify"
	"swipeserver/storage"
)

// Store is the part of *storage.Store the engine uses.
type Store interface {
	User(ctx context.Context, userID string) (*collections.UserEntry, error)
	UsersByID(ctx context.Context, userIDs []string) ([]*collections.UserEntry, error)
	AllUsers(ctx context.Context) ([]*collections.UserEntry, error)
	CommitLike(ctx context.Context, userID, targetID, conversationID string, mutual storage.MutualFunc) (bool, *collections.UserEntry, error)
}

// Notifier delivers push notifications.
type Notifier interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (*notify.Result, error)
}

// Events receives match events for asynchronous consumers.
type Events interface {
	MatchCreated(ctx context.Context, userID, targetID, conversationID string)
}

// Engine implements swiping and matching.
type Engine struct {
	db       Store
	notifier Notifier
	events   Events
	prefix   string
}

// NewEngine returns an Engine. prefix is prepended to every conversation id.
func NewEngine(db Store, notifier Notifier, events Events, prefix string) *Engine {
	return &Engine{db: db, notifier: notifier, events: events, prefix: prefix}
}

// SwipeResult is the outcome of a swipe.
type SwipeResult struct {
	Match          bool   `json:"match"`
	ConversationID string `json:"conversationID,omitempty"`
	// Notified is only set for a new match.
	Notified    *bool  `json:"notified,omitempty"`
	NotifyError string `json:"notifyError,omitempty"`
}

const notifyFailed = "Notification could not be delivered"

// ConversationID derives the id both participants compute for their conversation.
func ConversationID(a, b, prefix string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return prefix + "_" + strings.Join(ids, "_")
}

// Swipe records that userID likes targetID. If targetID already likes userID
// both become matched and their conversation is created, atomically. A new
// match notifies targetID; a failed notification never undoes the match.
func (e *Engine) Swipe(ctx context.Context, userID, targetID string) (*SwipeResult, error) {
	if targetID == "" {
		return nil, apicodes.Errorf(apicodes.BadRequest, apicodes.MsgSwipedRequired)
	}
	if userID == targetID {
		return nil, apicodes.Errorf(apicodes.BadRequest, apicodes.MsgSelfSwipe)
	}

	convoID := ConversationID(userID, targetID, e.prefix)
	var alreadyMatched bool
	var userName string
	matched, target, err := e.db.CommitLike(ctx, userID, targetID, convoID, func(user, target *collections.UserEntry) bool {
		alreadyMatched = user.MatchedWith(targetID)
		userName = user.Settings.FirstName
		return target.Likes(userID)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apicodes.Errorf(apicodes.NotFound, apicodes.MsgUserNotFound)
		}
		return nil, apicodes.Wrap(err, "recording swipe %s -> %s", userID, targetID)
	}

	result := &SwipeResult{Match: matched}
	if !matched {
		return result, nil
	}
	result.ConversationID = convoID
	if alreadyMatched {
		return result, nil
	}

	e.events.MatchCreated(ctx, userID, targetID, convoID)

	title, body := notify.MatchNotification(userName)
	_, err = e.notifier.Send(ctx, target.NotificationToken, title, body, map[string]string{
		notify.DataTypeKey: notify.DataTypeMatch,
		"matchID":          userID,
		"conversationID":   convoID,
	})
	notified := err == nil
	result.Notified = &notified
	if err != nil && !errors.Is(err, notify.ErrNoToken) {
		log.Printf("Match %s notification to %s failed: %v", convoID, targetID, err)
		result.NotifyError = notifyFailed
	}
	return result, nil
}

// Matches returns the public profiles of everyone userID is matched with.
// Matched users whose document is gone are left out.
func (e *Engine) Matches(ctx context.Context, userID string) ([]collections.Candidate, error) {
	user, err := e.db.User(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apicodes.Errorf(apicodes.NotFound, apicodes.MsgUserNotFound)
		}
		return nil, apicodes.Wrap(err, "loading user %s", userID)
	}
	users, err := e.db.UsersByID(ctx, user.MatchedUsers)
	if err != nil {
		return nil, apicodes.Wrap(err, "loading matches of %s", userID)
	}
	matches := make([]collections.Candidate, 0, len(users))
	for _, u := range users {
		matches = append(matches, collections.CandidateFrom(u))
	}
	return matches, nil
}

// Suggested returns every user userID has not liked or matched yet, other
// than userID itself, whose profile satisfies filter.
func (e *Engine) Suggested(ctx context.Context, userID string, filter *Filter) ([]collections.Candidate, error) {
	user, err := e.db.User(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// A caller who has not finished signup yet has nobody to exclude.
		user = &collections.UserEntry{ID: userID}
	case err != nil:
		return nil, apicodes.Wrap(err, "loading user %s", userID)
	}

	all, err := e.db.AllUsers(ctx)
	if err != nil {
		return nil, apicodes.Wrap(err, "listing users")
	}
	suggested := []collections.Candidate{}
	for _, u := range all {
		if u.ID == userID || user.Likes(u.ID) || user.MatchedWith(u.ID) {
			continue
		}
		if !filter.Match(&u.Profile) {
			continue
		}
		suggested = append(suggested, collections.CandidateFrom(u))
	}
	return suggested, nil
}
