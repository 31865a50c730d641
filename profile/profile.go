// Package profile owns the user document: reading it, replacing its settings
// and profile namespaces, registering push tokens, and the account lifecycle.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
	"swipeserver/collabauth"
	"swipeserver/collections"
	"swipeserver/storage"

	"github.com/mitchellh/mapstructure"
)

// Store is the part of *storage.Store the profile service uses.
type Store interface {
	User(ctx context.Context, userID string) (*collections.UserEntry, error)
	CreateUser(ctx context.Context, userID string, entry *collections.UserEntry) error
	UpdateUser(ctx context.Context, userID, path string, value interface{}) error
	DeleteUser(ctx context.Context, userID string) error
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// Accounts is the identity provider's account management.
type Accounts interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
}

// Service implements the profile operations.
type Service struct {
	db       Store
	accounts Accounts
	domains  []string
}

// NewService returns a Service. domains is the email domain allow-list.
func NewService(db Store, accounts Accounts, domains []string) *Service {
	return &Service{db: db, accounts: accounts, domains: domains}
}

// Get returns the caller's user document.
func (s *Service) Get(ctx context.Context, userID string) (*collections.UserEntry, error) {
	user, err := s.db.User(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apicodes.Errorf(apicodes.NotFound, apicodes.MsgProfileNotFound)
		}
		return nil, apicodes.Wrap(err, "loading profile of %s", userID)
	}
	return user, nil
}

// UpdateSettings replaces the settings namespace. Every settings field must be present.
func (s *Service) UpdateSettings(ctx context.Context, userID string, fields map[string]interface{}) (*collections.UserEntry, error) {
	if err := requireFields(fields, collections.SettingsFields); err != nil {
		return nil, err
	}
	settings := collections.Settings{}
	if err := decode(fields, &settings); err != nil {
		return nil, err
	}
	if err := s.checkEmailChange(ctx, userID, settings.Email); err != nil {
		return nil, err
	}
	return s.replace(ctx, userID, collections.SettingsKey, settings)
}

// UpdateProfile replaces the profile namespace. Every profile field must be present
// and gradYear must be a whole number.
func (s *Service) UpdateProfile(ctx context.Context, userID string, fields map[string]interface{}) (*collections.UserEntry, error) {
	if err := requireFields(fields, collections.ProfileFields); err != nil {
		return nil, err
	}
	if f, ok := fields["gradYear"].(float64); ok && f != math.Trunc(f) {
		return nil, apicodes.Errorf(apicodes.BadRequest, "gradYear must be an integer")
	}
	p := collections.Profile{}
	if err := decode(fields, &p); err != nil {
		return nil, err
	}
	return s.replace(ctx, userID, collections.ProfileKey, p)
}

// checkEmailChange refuses a new settings email that another account already uses.
func (s *Service) checkEmailChange(ctx context.Context, userID, email string) error {
	user, err := s.db.User(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apicodes.Errorf(apicodes.NotFound, apicodes.MsgUserNotFound)
		}
		return apicodes.Wrap(err, "loading user %s", userID)
	}
	if strings.EqualFold(user.Settings.Email, email) {
		return nil
	}
	taken, err := s.db.EmailTaken(ctx, email)
	if err != nil {
		return apicodes.Wrap(err, "checking email %s", email)
	}
	if taken {
		return apicodes.Errorf(apicodes.BadRequest, apicodes.MsgEmailInUse)
	}
	return nil
}

func (s *Service) replace(ctx context.Context, userID, path string, value interface{}) (*collections.UserEntry, error) {
	if err := s.db.UpdateUser(ctx, userID, path, value); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apicodes.Errorf(apicodes.NotFound, apicodes.MsgUserNotFound)
		}
		return nil, apicodes.Wrap(err, "updating %s of %s", path, userID)
	}
	return s.Get(ctx, userID)
}

// SetNotificationToken stores the device push token of the caller. A non-empty
// userID must name the caller.
func (s *Service) SetNotificationToken(ctx context.Context, callerID, userID, token string) error {
	if token == "" {
		return apicodes.Errorf(apicodes.BadRequest, apicodes.MsgNotificationTokenRequired)
	}
	if userID != "" && userID != callerID {
		return apicodes.Errorf(apicodes.Forbidden, apicodes.MsgForeignToken)
	}
	if _, err := s.db.User(ctx, callerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apicodes.Errorf(apicodes.NotFound, apicodes.MsgUserNotFound)
		}
		return apicodes.Wrap(err, "loading user %s", callerID)
	}
	if err := s.db.UpdateUser(ctx, callerID, collections.NotificationTokenKey, token); err != nil {
		return apicodes.Wrap(err, "storing notification token of %s", callerID)
	}
	return nil
}

// DeleteAccount removes the user document and then the identity provider account.
// Both steps tolerate an already missing record.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.db.DeleteUser(ctx, userID); err != nil {
		return apicodes.Wrap(err, "deleting user document %s", userID)
	}
	err := s.accounts.DeleteAccount(ctx, userID)
	switch {
	case errors.Is(err, collabauth.ErrAccountNotFound):
		log.Printf("Account %s was already removed from Firebase", userID)
	case err != nil:
		return apicodes.Wrap(err, "deleting account %s", userID)
	}
	return nil
}

func requireFields(fields map[string]interface{}, required []string) error {
	missing := []string{}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return apicodes.Errorf(apicodes.BadRequest, "Missing required fields: %s", strings.Join(missing, ", "))
}

// decode copies a JSON object into one of the document namespaces. Scalars are
// converted where it is unambiguous, so "2025" is accepted for gradYear.
func decode(input map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return apicodes.Wrap(err, "building decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return &apicodes.Error{
			Kind:    apicodes.BadRequest,
			Message: fmt.Sprintf("Invalid field value: %v", firstDecodeError(err)),
			Err:     err,
		}
	}
	return nil
}

func firstDecodeError(err error) string {
	var merr *mapstructure.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		return merr.Errors[0]
	}
	return err.Error()
}
