// Package collabauth verifies the Firebase ID token every authenticated request carries.
package collabauth

import (
	"context"
	"strings"

	"swipeserver/apicodes"

	"firebase.google.com/go/auth"
)

const (
	// Header is the request header carrying the ID token.
	Header = "Authorization"

	bearerScheme = "Bearer"
)

var (
	// ErrUnauthenticated is given when the request carries no credential.
	ErrUnauthenticated = &apicodes.Error{Kind: apicodes.Unauthenticated, Message: apicodes.MsgTokenMissing}
	// ErrInvalidCredential is given when the identity provider rejects the credential.
	ErrInvalidCredential = &apicodes.Error{Kind: apicodes.InvalidCredential, Message: apicodes.MsgTokenInvalid}
)

// Claim is the decoded identity of a verified request.
type Claim struct {
	UID   string
	Email string
}

// tokenVerifier is the part of *auth.Client the Verifier uses.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Verifier checks ID tokens against Firebase Auth. It keeps no session state.
type Verifier struct {
	client tokenVerifier
}

// NewVerifier returns a Verifier backed by a Firebase auth client.
func NewVerifier(client *auth.Client) *Verifier {
	return &Verifier{client: client}
}

// Verify validates the value of an Authorization header.
func (v *Verifier) Verify(ctx context.Context, header string) (*Claim, error) {
	idToken := TokenFromHeader(header)
	if idToken == "" {
		return nil, ErrUnauthenticated
	}
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, &apicodes.Error{
			Kind:    apicodes.InvalidCredential,
			Message: apicodes.MsgTokenInvalid,
			Err:     err,
		}
	}
	if token.UID == "" {
		return nil, ErrInvalidCredential
	}
	claim := &Claim{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		claim.Email = email
	}
	return claim, nil
}

// TokenFromHeader extracts the ID token from "Bearer <token>". The mobile client
// also sends the bare token, which is accepted as is.
func TokenFromHeader(header string) string {
	fields := strings.Fields(header)
	switch {
	case len(fields) == 1 && !strings.EqualFold(fields[0], bearerScheme):
		return fields[0]
	case len(fields) == 2 && strings.EqualFold(fields[0], bearerScheme):
		return fields[1]
	default:
		return ""
	}
}

type claimKey struct{}

// WithClaim stores the claim in ctx for downstream handlers.
func WithClaim(ctx context.Context, claim *Claim) context.Context {
	return context.WithValue(ctx, claimKey{}, claim)
}

// ClaimFrom returns the claim stored by WithClaim.
func ClaimFrom(ctx context.Context) (*Claim, bool) {
	claim, ok := ctx.Value(claimKey{}).(*Claim)
	return claim, ok && claim != nil
}
