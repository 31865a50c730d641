package collabauth

import (
	"context"
	"errors"

	"firebase.google.com/go/auth"
)

var (
	// ErrEmailExists is given when Firebase already has an account for the email.
	ErrEmailExists = errors.New("email already exists")
	// ErrAccountNotFound is given when deleting an account Firebase does not know.
	ErrAccountNotFound = errors.New("account not found")
)

// accountClient is the part of *auth.Client that Accounts uses.
type accountClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// Accounts creates and removes Firebase Auth accounts.
type Accounts struct {
	client accountClient
}

// NewAccounts returns Accounts backed by a Firebase auth client.
func NewAccounts(client *auth.Client) *Accounts {
	return &Accounts{client: client}
}

// CreateAccount registers email/password with Firebase and returns the new uid.
func (a *Accounts) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	user, err := a.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return user.UID, nil
}

// DeleteAccount removes the Firebase account for uid.
func (a *Accounts) DeleteAccount(ctx context.Context, uid string) error {
	err := a.client.DeleteUser(ctx, uid)
	if err != nil && auth.IsUserNotFound(err) {
		return ErrAccountNotFound
	}
	return err
}
