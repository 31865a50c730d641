// Package collections contains data structures and constants relating to Firestore collections and their entry
// structures/keys/values, as well as structs that define what is returned to clients.
package collections

import "time"

const (
	// UsersID is the top level collection keyed by Firebase uid.
	UsersID = "users"
	// ConversationsID is the top level collection keyed by conversation id.
	ConversationsID = "conversations"
	// MessagesID is the subcollection of a conversation holding its messages.
	MessagesID = "messages"
)

// Settings is the account metadata namespace of a user document.
type Settings struct {
	FirstName string `firestore:"firstName" json:"firstName" mapstructure:"firstName"`
	LastName  string `firestore:"lastName" json:"lastName" mapstructure:"lastName"`
	Email     string `firestore:"email" json:"email" mapstructure:"email"`
	Birthday  string `firestore:"birthday" json:"birthday" mapstructure:"birthday"`
	Ethnicity string `firestore:"ethnicity" json:"ethnicity" mapstructure:"ethnicity"`
	Gender    string `firestore:"gender" json:"gender" mapstructure:"gender"`
	Pronouns  string `firestore:"pronouns" json:"pronouns" mapstructure:"pronouns"`
}

// Profile is the public, matchable namespace of a user document.
type Profile struct {
	Bio                  string   `firestore:"bio" json:"bio" mapstructure:"bio"`
	ProfilePictureURL    string   `firestore:"profilePictureUrl" json:"profilePictureUrl" mapstructure:"profilePictureUrl"`
	Major                string   `firestore:"major" json:"major" mapstructure:"major"`
	GradYear             int      `firestore:"gradYear" json:"gradYear" mapstructure:"gradYear"`
	Hobbies              []string `firestore:"hobbies" json:"hobbies" mapstructure:"hobbies"`
	Orgs                 []string `firestore:"orgs" json:"orgs" mapstructure:"orgs"`
	CareerPath           string   `firestore:"careerPath" json:"careerPath" mapstructure:"careerPath"`
	InterestedIndustries []string `firestore:"interestedIndustries" json:"interestedIndustries" mapstructure:"interestedIndustries"`
	UserType             string   `firestore:"userType" json:"userType" mapstructure:"userType"`
	MentorshipAreas      []string `firestore:"mentorshipAreas" json:"mentorshipAreas" mapstructure:"mentorshipAreas"`
}

// UserEntry is the schema of a document in the users collection.
type UserEntry struct {
	// ID is the document id; it is not stored as a field.
	ID string `firestore:"-" json:"id"`

	Settings Settings `firestore:"settings" json:"settings"`
	Profile  Profile  `firestore:"profile" json:"profile"`

	// LikedUsers encodes the set of users this user swiped right on.
	LikedUsers map[string]bool `firestore:"liked_users" json:"liked_users"`

	// MatchedUsers holds every user with a mutual like, without duplicates.
	MatchedUsers []string `firestore:"matched_users" json:"matched_users"`

	NotificationToken string `firestore:"notification_token,omitempty" json:"notification_token,omitempty"`

	// EmailLower backs the duplicate email lookup.
	EmailLower string `firestore:"email_lower,omitempty" json:"-"`
}

// Likes reports whether the user has liked userID.
func (u *UserEntry) Likes(userID string) bool {
	return u.LikedUsers[userID]
}

// MatchedWith reports whether userID is in the user's matched list.
func (u *UserEntry) MatchedWith(userID string) bool {
	for _, id := range u.MatchedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// ConversationEntry is the schema of a document in the conversations collection.
type ConversationEntry struct {
	Participants []string  `firestore:"participants" json:"participants"`
	LastMessage  string    `firestore:"lastMessage" json:"lastMessage"`
	LastUpdated  time.Time `firestore:"lastUpdated" json:"lastUpdated"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

// MessageEntry is the schema of a document in a conversation's messages subcollection.
type MessageEntry struct {
	ID        string    `firestore:"-" json:"id"`
	Text      string    `firestore:"text" json:"text"`
	SenderID  string    `firestore:"sender_id" json:"sender_id"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
}

// Candidate is what clients receive when browsing suggested users or matches.
type Candidate struct {
	ID       string   `json:"id"`
	Settings Settings `json:"settings"`
	Profile  Profile  `json:"profile"`
}

// CandidateFrom strips the relationship fields from a user entry.
func CandidateFrom(u *UserEntry) Candidate {
	return Candidate{
		ID:       u.ID,
		Settings: u.Settings,
		Profile:  u.Profile,
	}
}
