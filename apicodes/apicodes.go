// Package apicodes holds the error taxonomy shared by every component and the
// messages returned to API clients.
package apicodes

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error and decides the HTTP status it is rendered with.
type Kind int

const (
	// Internal is an unexpected store or identity provider failure.
	Internal Kind = iota
	// Unauthenticated is given when no credential was supplied.
	Unauthenticated
	// InvalidCredential is given when the credential is malformed, expired or revoked.
	InvalidCredential
	// Forbidden is given when the caller is known but not permitted, e.g. not matched.
	Forbidden
	// BadRequest is given for missing or invalid fields.
	BadRequest
	// NotFound is given when a profile or user does not exist.
	NotFound
)

const (
	// MsgTokenMissing is given when the Authorization header is absent.
	MsgTokenMissing = "Authorization token missing"

	// MsgTokenInvalid is given when the identity provider rejects the token.
	MsgTokenInvalid = "Invalid or expired token"

	// MsgInternal replaces the cause of every Internal error in responses.
	MsgInternal = "Internal server error"

	// MsgUserNotFound is given when the user document does not exist.
	MsgUserNotFound = "User not found"

	// MsgProfileNotFound is given when the caller has no profile document.
	MsgProfileNotFound = "Profile not found"

	// MsgNotMatched is given when two users try to talk without a match.
	MsgNotMatched = "You can only message users you have matched with"

	// MsgSelfSwipe is given when a user swipes on themselves.
	MsgSelfSwipe = "Users cannot swipe on themselves"

	// MsgCredentialsRequired is given on signup without email or password.
	MsgCredentialsRequired = "Email and password are required"

	// MsgDomainNotAllowedFormat is given when the email domain is nowhere near the allow-list.
	// It is filled with the allowed domains, e.g. "@rutgers.edu or @scarletmail.rutgers.edu".
	MsgDomainNotAllowedFormat = "Only %s emails are allowed"

	// MsgDomainTypo prefixes the error given when the email domain looks like a typo.
	MsgDomainTypo = "Invalid email domain"

	// MsgPasswordTooShort is given when the password has fewer than 6 characters.
	MsgPasswordTooShort = "Password must be at least 6 characters"

	// MsgEmailInUse is given when another account already uses the email.
	MsgEmailInUse = "Email already in use"

	// MsgEmptyMessage is given when a chat message is blank after trimming.
	MsgEmptyMessage = "Message cannot be empty"

	// MsgTargetRequired is given when a conversation request names no other user.
	MsgTargetRequired = "Missing targetID"

	// MsgSwipedRequired is given when a swipe names no target.
	MsgSwipedRequired = "Missing 'swipedID' in request body"

	// MsgNotificationTokenRequired is given when registering an empty push token.
	MsgNotificationTokenRequired = "Missing notification token"

	// MsgForeignToken is given when registering a push token for somebody else.
	MsgForeignToken = "Cannot set the notification token of another user"

	// MsgInvalidBody is given when the request body is not the expected JSON.
	MsgInvalidBody = "Invalid request body"
)

// Error is returned by components and rendered by the API boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidCredential, Forbidden:
		return http.StatusForbidden
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client. Internal causes are never exposed.
func (e *Error) PublicMessage() string {
	if e.Kind == Internal {
		return MsgInternal
	}
	return e.Message
}

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, v ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, v...)}
}

// Wrap builds an Internal error around err.
func Wrap(err error, format string, v ...interface{}) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, v...), Err: err}
}

// As converts any error into an *Error, treating unknown errors as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: Internal, Message: MsgInternal, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
