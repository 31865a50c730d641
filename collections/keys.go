package collections

const (
	// SettingsKey is the field holding the Settings namespace.
	SettingsKey = "settings"

	// ProfileKey is the field holding the Profile namespace.
	ProfileKey = "profile"

	// LikedUsersKey is the map field of liked user ids.
	LikedUsersKey = "liked_users"

	// MatchedUsersKey is the array field of matched user ids.
	MatchedUsersKey = "matched_users"

	// NotificationTokenKey is the push token field of a user.
	NotificationTokenKey = "notification_token"

	// EmailLowerKey is the indexed, lower-cased copy of settings.email.
	EmailLowerKey = "email_lower"

	// ParticipantsKey lists the two users of a conversation.
	ParticipantsKey = "participants"

	// LastMessageKey is the denormalized text of the latest message.
	LastMessageKey = "lastMessage"

	// LastUpdatedKey is the time of the latest message.
	LastUpdatedKey = "lastUpdated"

	// CreatedAtKey is the time a conversation was created.
	CreatedAtKey = "createdAt"

	// TimestampKey orders messages within a conversation.
	TimestampKey = "timestamp"

	// TextKey is the body of a message.
	TextKey = "text"

	// SenderIDKey is the author of a message.
	SenderIDKey = "sender_id"
)

// SettingsFields lists every key an update_settings request must carry.
var SettingsFields = []string{
	"firstName", "lastName", "email", "birthday", "ethnicity", "gender", "pronouns",
}

// ProfileFields lists every key an update_profile request must carry.
var ProfileFields = []string{
	"bio", "profilePictureUrl", "major", "gradYear", "hobbies", "orgs",
	"careerPath", "interestedIndustries", "userType", "mentorshipAreas",
}
