package testing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"swipeserver/apicodes"
	"swipeserver/collabauth"
	"swipeserver/collections"
	"swipeserver/notify"
	"swipeserver/remotejob"
)

// BadToken is rejected by FakeVerifier as if it had expired.
const BadToken = "expired"

// FakeVerifier accepts any bearer token and uses it as the uid.
type FakeVerifier struct{}

// Verify implements the api token verifier.
func (FakeVerifier) Verify(ctx context.Context, header string) (*collabauth.Claim, error) {
	token := collabauth.TokenFromHeader(header)
	switch token {
	case "":
		return nil, collabauth.ErrUnauthenticated
	case BadToken:
		return nil, collabauth.ErrInvalidCredential
	}
	return &collabauth.Claim{UID: token, Email: token + "@rutgers.edu"}, nil
}

// FakeAccounts is an in-memory identity provider keyed by lower-cased email.
type FakeAccounts struct {
	mu      sync.Mutex
	byEmail map[string]string
	deleted []string

	CreateErr error
	DeleteErr error
}

// NewFakeAccounts returns an empty FakeAccounts.
func NewFakeAccounts() *FakeAccounts {
	return &FakeAccounts{byEmail: map[string]string{}}
}

// CreateAccount implements the accounts method of the same name.
func (fa *FakeAccounts) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.CreateErr != nil {
		return "", fa.CreateErr
	}
	key := strings.ToLower(email)
	if _, ok := fa.byEmail[key]; ok {
		return "", collabauth.ErrEmailExists
	}
	uid := fmt.Sprintf("uid_%d", len(fa.byEmail)+1)
	fa.byEmail[key] = uid
	return uid, nil
}

// DeleteAccount implements the accounts method of the same name.
func (fa *FakeAccounts) DeleteAccount(ctx context.Context, uid string) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.DeleteErr != nil {
		return fa.DeleteErr
	}
	for email, id := range fa.byEmail {
		if id == uid {
			delete(fa.byEmail, email)
			fa.deleted = append(fa.deleted, uid)
			return nil
		}
	}
	return collabauth.ErrAccountNotFound
}

// Deleted lists the uids removed so far.
func (fa *FakeAccounts) Deleted() []string {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return append([]string{}, fa.deleted...)
}

// Count is the number of live accounts.
func (fa *FakeAccounts) Count() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return len(fa.byEmail)
}

// FakeSender records push messages instead of delivering them.
type FakeSender struct {
	mu   sync.Mutex
	sent []*notify.Message

	Err error
}

// Send implements notify.Sender.
func (fs *FakeSender) Send(ctx context.Context, msg *notify.Message) (*notify.Result, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.Err != nil {
		return nil, fs.Err
	}
	fs.sent = append(fs.sent, msg)
	return &notify.Result{Provider: "fake", ID: fmt.Sprintf("ticket_%d", len(fs.sent))}, nil
}

// Sent returns the messages delivered so far.
func (fs *FakeSender) Sent() []*notify.Message {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]*notify.Message{}, fs.sent...)
}

// Event is a call recorded by FakeEvents.
type Event struct {
	Type           string
	UserID         string
	TargetID       string
	ConversationID string
	MessageID      string
}

// FakeEvents records published events.
type FakeEvents struct {
	mu     sync.Mutex
	events []Event
}

// MatchCreated implements the events method of the same name.
func (fe *FakeEvents) MatchCreated(ctx context.Context, userID, targetID, conversationID string) {
	fe.record(Event{Type: remotejob.EventMatchCreated, UserID: userID, TargetID: targetID, ConversationID: conversationID})
}

// MessageSent implements the events method of the same name.
func (fe *FakeEvents) MessageSent(ctx context.Context, senderID, recipientID, conversationID, messageID string) {
	fe.record(Event{Type: remotejob.EventMessageSent, UserID: senderID, TargetID: recipientID, ConversationID: conversationID, MessageID: messageID})
}

func (fe *FakeEvents) record(e Event) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.events = append(fe.events, e)
}

// Events returns the events recorded so far.
func (fe *FakeEvents) Events() []Event {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return append([]Event{}, fe.events...)
}

// ErrStore is a generic failure to inject with FakeStore.Errs.
var ErrStore = errors.New("deadline exceeded")

// AssertKind fails the test unless err is an *apicodes.Error of kind.
func AssertKind(t *testing.T, err error, kind apicodes.Kind) {
	t.Helper()
	if !apicodes.IsKind(err, kind) {
		t.Errorf("got error %v, want kind %d", err, kind)
	}
}

// SeedUsers loads three users into fs. user_1 and user_2 are matched;
// user_3 has neither likes nor matches.
func SeedUsers(fs *FakeStore) {
	for _, u := range SampleUsers() {
		fs.Put(u)
	}
}

// SampleUsers returns fresh copies of the seeded users.
func SampleUsers() []*collections.UserEntry {
	return []*collections.UserEntry{
		{
			ID: "user_1",
			Settings: collections.Settings{
				FirstName: "Alice",
				LastName:  "Smith",
				Email:     "alice@rutgers.edu",
				Birthday:  "2000-01-01",
				Ethnicity: "Asian",
				Gender:    "Female",
				Pronouns:  "She/Her",
			},
			Profile: collections.Profile{
				Bio:                  "Love coding and exploring nature!",
				ProfilePictureURL:    "https://example.com/user1.jpg",
				Major:                "Computer Science",
				GradYear:             2025,
				Hobbies:              []string{"Hiking", "Reading"},
				Orgs:                 []string{"Tech Club"},
				CareerPath:           "Software Engineer",
				InterestedIndustries: []string{"Tech"},
				UserType:             "mentor",
				MentorshipAreas:      []string{"Career Advice"},
			},
			NotificationToken: "token_1",
			LikedUsers:        map[string]bool{"user_2": true},
			MatchedUsers:      []string{"user_2"},
		},
		{
			ID: "user_2",
			Settings: collections.Settings{
				FirstName: "Bob",
				LastName:  "Johnson",
				Email:     "bob@rutgers.edu",
				Birthday:  "1999-05-15",
				Ethnicity: "Caucasian",
				Gender:    "Male",
				Pronouns:  "He/Him",
			},
			Profile: collections.Profile{
				Bio:                  "Passionate about building things!",
				ProfilePictureURL:    "https://example.com/user2.jpg",
				Major:                "Mechanical Engineering",
				GradYear:             2024,
				Hobbies:              []string{"Cycling", "Gaming"},
				Orgs:                 []string{"Robotics Club"},
				CareerPath:           "Mechanical Engineer",
				InterestedIndustries: []string{"Automotive"},
				UserType:             "mentee",
				MentorshipAreas:      []string{},
			},
			NotificationToken: "token_2",
			LikedUsers:        map[string]bool{"user_1": true},
			MatchedUsers:      []string{"user_1"},
		},
		{
			ID: "user_3",
			Settings: collections.Settings{
				FirstName: "Charlie",
				LastName:  "Brown",
				Email:     "charlie@scarletmail.rutgers.edu",
				Birthday:  "1998-07-20",
				Ethnicity: "Hispanic",
				Gender:    "Non-binary",
				Pronouns:  "They/Them",
			},
			Profile: collections.Profile{
				Bio:                  "Helping others achieve their dreams!",
				ProfilePictureURL:    "https://example.com/user3.jpg",
				Major:                "Business Administration",
				GradYear:             2023,
				Hobbies:              []string{"Cooking", "Traveling"},
				Orgs:                 []string{"Entrepreneurship Club"},
				CareerPath:           "Entrepreneur",
				InterestedIndustries: []string{"Startups"},
				UserType:             "mentor",
				MentorshipAreas:      []string{"Business Strategy"},
			},
			NotificationToken: "token_3",
			LikedUsers:        map[string]bool{},
			MatchedUsers:      []string{},
		},
	}
}
