// Package storage is the only package that talks to Firestore. Components
// depend on small interfaces that *Store satisfies so tests can drop in a fake.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"

	log "swipeserver/cloudlog"
	"swipeserver/collections"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotFound is given when a document of a given id is not within the provided collection.
	ErrNotFound = errors.New("could not find the Document")
)

// Store wraps a Firestore client and the collections the server uses.
type Store struct {
	client        *firestore.Client
	users         *firestore.CollectionRef
	conversations *firestore.CollectionRef
}

// New returns a Store backed by client. The caller owns the client's lifecycle
// unless it calls Store.Close.
func New(client *firestore.Client) *Store {
	return &Store{
		client:        client,
		users:         client.Collection(collections.UsersID),
		conversations: client.Collection(collections.ConversationsID),
	}
}

// Close performs cleanup for closing storage connections.
func (s *Store) Close() error {
	return s.client.Close()
}

// User loads the user document for userID.
func (s *Store) User(ctx context.Context, userID string) (*collections.UserEntry, error) {
	doc, err := s.users.Doc(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return userFromSnapshot(doc)
}

// UsersByID loads several users in one round trip. Missing documents are skipped.
func (s *Store) UsersByID(ctx context.Context, userIDs []string) ([]*collections.UserEntry, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(userIDs))
	for _, id := range userIDs {
		refs = append(refs, s.users.Doc(id))
	}
	docs, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, err
	}
	users := make([]*collections.UserEntry, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		user, err := userFromSnapshot(doc)
		if err != nil {
			log.Printf("Error decoding user %s: %v", doc.Ref.ID, err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// AllUsers streams the whole users collection.
func (s *Store) AllUsers(ctx context.Context) ([]*collections.UserEntry, error) {
	iter := s.users.Documents(ctx)
	defer iter.Stop()
	users := []*collections.UserEntry{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		user, err := userFromSnapshot(doc)
		if err != nil {
			log.Printf("Error decoding user %s: %v", doc.Ref.ID, err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateUser writes a new user document and fails if one already exists.
func (s *Store) CreateUser(ctx context.Context, userID string, entry *collections.UserEntry) error {
	if entry.LikedUsers == nil {
		entry.LikedUsers = map[string]bool{}
	}
	if entry.MatchedUsers == nil {
		entry.MatchedUsers = []string{}
	}
	entry.EmailLower = strings.ToLower(entry.Settings.Email)
	_, err := s.users.Doc(userID).Create(ctx, entry)
	return err
}

// UpdateUser replaces the value at path in the user's document. The document must exist.
func (s *Store) UpdateUser(ctx context.Context, userID, path string, value interface{}) error {
	updates := []firestore.Update{{Path: path, Value: value}}
	if settings, ok := value.(collections.Settings); ok && path == collections.SettingsKey {
		// Keep the duplicate email index in step with the settings namespace.
		updates = append(updates, firestore.Update{
			Path:  collections.EmailLowerKey,
			Value: strings.ToLower(settings.Email),
		})
	}
	_, err := s.users.Doc(userID).Update(ctx, updates)
	return notFound(err)
}

// DeleteUser removes the user's document. Deleting a missing document is not an error.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.users.Doc(userID).Delete(ctx)
	return err
}

// EmailTaken looks up the indexed lower-cased email instead of scanning every user.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	iter := s.users.
		Where(collections.EmailLowerKey, "==", strings.ToLower(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()
	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MutualFunc decides, from both users' current documents, whether a like completes a match.
type MutualFunc func(user, target *collections.UserEntry) bool

// CommitLike records that userID likes targetID and, if mutual says so, makes
// both users matched and creates their conversation. Everything happens in a
// single transaction, so concurrent swipes on the same pair cannot lose the
// like or produce a one-sided match. The target's document is returned for
// notification purposes.
func (s *Store) CommitLike(ctx context.Context, userID, targetID, conversationID string, mutual MutualFunc) (bool, *collections.UserEntry, error) {
	userRef := s.users.Doc(userID)
	targetRef := s.users.Doc(targetID)
	convoRef := s.conversations.Doc(conversationID)

	var matched bool
	var target *collections.UserEntry
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Reads have to come before any write in a Firestore transaction.
		userDoc, err := tx.Get(userRef)
		if err != nil {
			return notFound(err)
		}
		targetDoc, err := tx.Get(targetRef)
		if err != nil {
			return notFound(err)
		}
		convoDoc, err := tx.Get(convoRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		user, err := userFromSnapshot(userDoc)
		if err != nil {
			return err
		}
		target, err = userFromSnapshot(targetDoc)
		if err != nil {
			return err
		}

		matched = mutual(user, target)
		userUpdates := []firestore.Update{{
			FieldPath: firestore.FieldPath{collections.LikedUsersKey, targetID},
			Value:     true,
		}}
		if !matched {
			return tx.Update(userRef, userUpdates)
		}

		userUpdates = append(userUpdates, firestore.Update{
			Path:  collections.MatchedUsersKey,
			Value: firestore.ArrayUnion(targetID),
		})
		if err := tx.Update(userRef, userUpdates); err != nil {
			return err
		}
		if err := tx.Update(targetRef, []firestore.Update{{
			Path:  collections.MatchedUsersKey,
			Value: firestore.ArrayUnion(userID),
		}}); err != nil {
			return err
		}
		if convoDoc != nil && convoDoc.Exists() {
			return nil
		}
		return tx.Create(convoRef, map[string]interface{}{
			collections.ParticipantsKey: participants(userID, targetID),
			collections.LastMessageKey:  "",
			collections.CreatedAtKey:    firestore.ServerTimestamp,
			collections.LastUpdatedKey:  firestore.ServerTimestamp,
		})
	})
	if err != nil {
		return false, nil, err
	}
	return matched, target, nil
}

// Messages returns the conversation's messages in send order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]collections.MessageEntry, error) {
	iter := s.messages(conversationID).
		OrderBy(collections.TimestampKey, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()
	messages := []collections.MessageEntry{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		msg, err := messageFromSnapshot(doc)
		if err != nil {
			log.Printf("Error decoding message %s: %v", doc.Ref.ID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AddMessage appends a message with a server assigned timestamp and refreshes
// the conversation summary in the same batch. It returns the new message id.
func (s *Store) AddMessage(ctx context.Context, conversationID, senderID, recipientID, text string) (string, error) {
	convoRef := s.conversations.Doc(conversationID)
	msgRef := s.messages(conversationID).NewDoc()

	batch := s.client.Batch()
	batch.Create(msgRef, map[string]interface{}{
		collections.TextKey:      text,
		collections.SenderIDKey:  senderID,
		collections.TimestampKey: firestore.ServerTimestamp,
	})
	// Merge so matches made before conversations existed still get a summary.
	batch.Set(convoRef, map[string]interface{}{
		collections.ParticipantsKey: participants(senderID, recipientID),
		collections.LastMessageKey:  text,
		collections.LastUpdatedKey:  firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if _, err := batch.Commit(ctx); err != nil {
		return "", err
	}
	return msgRef.ID, nil
}

// WatchMessages calls fn for every message added to the conversation after the
// call starts, until ctx is done or fn returns an error.
func (s *Store) WatchMessages(ctx context.Context, conversationID string, fn func(collections.MessageEntry) error) error {
	iter := s.messages(conversationID).
		OrderBy(collections.TimestampKey, firestore.Asc).
		Snapshots(ctx)
	defer iter.Stop()

	first := true
	for {
		snap, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return ctx.Err()
			}
			return err
		}
		// The first snapshot replays the existing history, which callers already have.
		if first {
			first = false
			continue
		}
		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			msg, err := messageFromSnapshot(change.Doc)
			if err != nil {
				log.Printf("Error decoding message %s: %v", change.Doc.Ref.ID, err)
				continue
			}
			if err := fn(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Store) messages(conversationID string) *firestore.CollectionRef {
	return s.conversations.Doc(conversationID).Collection(collections.MessagesID)
}

func participants(a, b string) []string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids
}

func userFromSnapshot(doc *firestore.DocumentSnapshot) (*collections.UserEntry, error) {
	user := &collections.UserEntry{}
	if err := doc.DataTo(user); err != nil {
		return nil, err
	}
	user.ID = doc.Ref.ID
	if user.LikedUsers == nil {
		user.LikedUsers = map[string]bool{}
	}
	if user.MatchedUsers == nil {
		user.MatchedUsers = []string{}
	}
	return user, nil
}

func messageFromSnapshot(doc *firestore.DocumentSnapshot) (collections.MessageEntry, error) {
	msg := collections.MessageEntry{}
	if err := doc.DataTo(&msg); err != nil {
		return msg, err
	}
	msg.ID = doc.Ref.ID
	return msg, nil
}

// notFound normalises Firestore's codes.NotFound into ErrNotFound.
func notFound(err error) error {
	if err != nil && status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}
