package testing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"swipeserver/collections"
	"swipeserver/storage"
)

// FakeStore is an in-memory stand-in for *storage.Store with the same semantics.
// Set Errs[method] to make that method fail.
type FakeStore struct {
	mu sync.Mutex

	users         map[string]*collections.UserEntry
	conversations map[string]*collections.ConversationEntry
	messages      map[string][]collections.MessageEntry
	watchers      map[string][]chan collections.MessageEntry

	nextID int
	clock  time.Time

	Errs map[string]error
}

// NewFakeStore returns an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		users:         map[string]*collections.UserEntry{},
		conversations: map[string]*collections.ConversationEntry{},
		messages:      map[string][]collections.MessageEntry{},
		watchers:      map[string][]chan collections.MessageEntry{},
		clock:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Errs:          map[string]error{},
	}
}

func (fs *FakeStore) fail(method string) error {
	return fs.Errs[method]
}

// now hands out strictly increasing timestamps, as a server clock would.
func (fs *FakeStore) now() time.Time {
	fs.clock = fs.clock.Add(time.Second)
	return fs.clock
}

// Put stores a copy of user, replacing any existing document.
func (fs *FakeStore) Put(user *collections.UserEntry) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	u := copyUser(user)
	u.EmailLower = strings.ToLower(u.Settings.Email)
	fs.users[u.ID] = u
}

// Conversation returns the stored conversation document, if any.
func (fs *FakeStore) Conversation(conversationID string) (*collections.ConversationEntry, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	c, ok := fs.conversations[conversationID]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// User implements the storage method of the same name.
func (fs *FakeStore) User(ctx context.Context, userID string) (*collections.UserEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("User"); err != nil {
		return nil, err
	}
	u, ok := fs.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

// UsersByID implements the storage method of the same name.
func (fs *FakeStore) UsersByID(ctx context.Context, userIDs []string) ([]*collections.UserEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("UsersByID"); err != nil {
		return nil, err
	}
	users := []*collections.UserEntry{}
	for _, id := range userIDs {
		if u, ok := fs.users[id]; ok {
			users = append(users, copyUser(u))
		}
	}
	return users, nil
}

// AllUsers implements the storage method of the same name, ordered by id like Firestore.
func (fs *FakeStore) AllUsers(ctx context.Context) ([]*collections.UserEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("AllUsers"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(fs.users))
	for id := range fs.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	users := make([]*collections.UserEntry, 0, len(ids))
	for _, id := range ids {
		users = append(users, copyUser(fs.users[id]))
	}
	return users, nil
}

// CreateUser implements the storage method of the same name.
func (fs *FakeStore) CreateUser(ctx context.Context, userID string, entry *collections.UserEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("CreateUser"); err != nil {
		return err
	}
	if _, ok := fs.users[userID]; ok {
		return fmt.Errorf("document %s already exists", userID)
	}
	u := copyUser(entry)
	u.ID = userID
	u.EmailLower = strings.ToLower(u.Settings.Email)
	fs.users[userID] = u
	return nil
}

// UpdateUser implements the storage method of the same name for the paths the server writes.
func (fs *FakeStore) UpdateUser(ctx context.Context, userID, path string, value interface{}) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("UpdateUser"); err != nil {
		return err
	}
	u, ok := fs.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	switch path {
	case collections.SettingsKey:
		u.Settings = value.(collections.Settings)
		u.EmailLower = strings.ToLower(u.Settings.Email)
	case collections.ProfileKey:
		u.Profile = copyProfile(value.(collections.Profile))
	case collections.NotificationTokenKey:
		u.NotificationToken = value.(string)
	default:
		return fmt.Errorf("FakeStore cannot update path %q", path)
	}
	return nil
}

// DeleteUser implements the storage method of the same name.
func (fs *FakeStore) DeleteUser(ctx context.Context, userID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("DeleteUser"); err != nil {
		return err
	}
	delete(fs.users, userID)
	return nil
}

// EmailTaken implements the storage method of the same name.
func (fs *FakeStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("EmailTaken"); err != nil {
		return false, err
	}
	lower := strings.ToLower(email)
	for _, u := range fs.users {
		if u.EmailLower == lower {
			return true, nil
		}
	}
	return false, nil
}

// CommitLike implements the storage method of the same name. The mutex plays
// the role of the Firestore transaction.
func (fs *FakeStore) CommitLike(ctx context.Context, userID, targetID, conversationID string, mutual storage.MutualFunc) (bool, *collections.UserEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("CommitLike"); err != nil {
		return false, nil, err
	}
	user, ok := fs.users[userID]
	if !ok {
		return false, nil, storage.ErrNotFound
	}
	target, ok := fs.users[targetID]
	if !ok {
		return false, nil, storage.ErrNotFound
	}

	matched := mutual(copyUser(user), copyUser(target))
	if user.LikedUsers == nil {
		user.LikedUsers = map[string]bool{}
	}
	user.LikedUsers[targetID] = true
	if matched {
		user.MatchedUsers = arrayUnion(user.MatchedUsers, targetID)
		target.MatchedUsers = arrayUnion(target.MatchedUsers, userID)
		if _, ok := fs.conversations[conversationID]; !ok {
			now := fs.now()
			fs.conversations[conversationID] = &collections.ConversationEntry{
				Participants: sortedPair(userID, targetID),
				CreatedAt:    now,
				LastUpdated:  now,
			}
		}
	}
	return matched, copyUser(target), nil
}

// Messages implements the storage method of the same name.
func (fs *FakeStore) Messages(ctx context.Context, conversationID string) ([]collections.MessageEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("Messages"); err != nil {
		return nil, err
	}
	return append([]collections.MessageEntry{}, fs.messages[conversationID]...), nil
}

// AddMessage implements the storage method of the same name.
func (fs *FakeStore) AddMessage(ctx context.Context, conversationID, senderID, recipientID, text string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.fail("AddMessage"); err != nil {
		return "", err
	}
	fs.nextID++
	msg := collections.MessageEntry{
		ID:        fmt.Sprintf("msg_%d", fs.nextID),
		Text:      text,
		SenderID:  senderID,
		Timestamp: fs.now(),
	}
	fs.messages[conversationID] = append(fs.messages[conversationID], msg)

	convo, ok := fs.conversations[conversationID]
	if !ok {
		convo = &collections.ConversationEntry{CreatedAt: msg.Timestamp}
		fs.conversations[conversationID] = convo
	}
	convo.Participants = sortedPair(senderID, recipientID)
	convo.LastMessage = text
	convo.LastUpdated = msg.Timestamp

	for _, ch := range fs.watchers[conversationID] {
		select {
		case ch <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// WatchMessages implements the storage method of the same name.
func (fs *FakeStore) WatchMessages(ctx context.Context, conversationID string, fn func(collections.MessageEntry) error) error {
	ch := make(chan collections.MessageEntry, 16)
	fs.mu.Lock()
	if err := fs.fail("WatchMessages"); err != nil {
		fs.mu.Unlock()
		return err
	}
	fs.watchers[conversationID] = append(fs.watchers[conversationID], ch)
	fs.mu.Unlock()

	defer func() {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		watchers := fs.watchers[conversationID]
		for i, w := range watchers {
			if w == ch {
				fs.watchers[conversationID] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := fn(msg); err != nil {
				return err
			}
		}
	}
}

// Watching reports how many watchers are registered on the conversation.
func (fs *FakeStore) Watching(conversationID string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.watchers[conversationID])
}

func arrayUnion(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func sortedPair(a, b string) []string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids
}

func copyUser(u *collections.UserEntry) *collections.UserEntry {
	cp := *u
	cp.LikedUsers = map[string]bool{}
	for k, v := range u.LikedUsers {
		cp.LikedUsers[k] = v
	}
	cp.MatchedUsers = append([]string{}, u.MatchedUsers...)
	cp.Profile = copyProfile(u.Profile)
	return &cp
}

func copyProfile(p collections.Profile) collections.Profile {
	p.Hobbies = append([]string(nil), p.Hobbies...)
	p.Orgs = append([]string(nil), p.Orgs...)
	p.InterestedIndustries = append([]string(nil), p.InterestedIndustries...)
	p.MentorshipAreas = append([]string(nil), p.MentorshipAreas...)
	return p
}
