package profile

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
	"swipeserver/collabauth"
	"swipeserver/collections"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	minPasswordLength = 6

	// Domains at least this similar to an allowed one are reported as typos.
	typoRatio = 0.9
)

// CreateRequest is the body of a signup.
type CreateRequest struct {
	Email    string               `json:"email" mapstructure:"email"`
	Password string               `json:"password" mapstructure:"password"`
	Settings collections.Settings `json:"settings" mapstructure:"settings"`
	Profile  collections.Profile  `json:"profile" mapstructure:"profile"`
}

// DecodeCreateRequest reads a signup body. The app sends the settings and
// profile fields flat beside email and password; nested "settings" and
// "profile" objects are accepted too, and flat fields win over nested ones.
func DecodeCreateRequest(body map[string]interface{}) (*CreateRequest, error) {
	req := &CreateRequest{}
	if err := decode(body, req); err != nil {
		return nil, err
	}
	if err := decode(body, &req.Settings); err != nil {
		return nil, err
	}
	if err := decode(body, &req.Profile); err != nil {
		return nil, err
	}
	return req, nil
}

// CreateUser validates the signup, registers the account with the identity
// provider and writes the user document. It returns the new uid.
func (s *Service) CreateUser(ctx context.Context, req *CreateRequest) (string, error) {
	if req.Email == "" || req.Password == "" {
		return "", apicodes.Errorf(apicodes.BadRequest, apicodes.MsgCredentialsRequired)
	}
	if err := CheckEmailDomain(req.Email, s.domains); err != nil {
		return "", err
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return "", apicodes.Errorf(apicodes.BadRequest, apicodes.MsgPasswordTooShort)
	}
	taken, err := s.db.EmailTaken(ctx, req.Email)
	if err != nil {
		return "", apicodes.Wrap(err, "checking email %s", req.Email)
	}
	if taken {
		return "", apicodes.Errorf(apicodes.BadRequest, apicodes.MsgEmailInUse)
	}

	displayName := strings.TrimSpace(req.Settings.FirstName + " " + req.Settings.LastName)
	uid, err := s.accounts.CreateAccount(ctx, req.Email, req.Password, displayName)
	if err != nil {
		if errors.Is(err, collabauth.ErrEmailExists) {
			return "", apicodes.Errorf(apicodes.BadRequest, apicodes.MsgEmailInUse)
		}
		return "", apicodes.Wrap(err, "creating account for %s", req.Email)
	}

	p := req.Profile
	for _, list := range []*[]string{&p.Hobbies, &p.Orgs, &p.InterestedIndustries, &p.MentorshipAreas} {
		if *list == nil {
			*list = []string{}
		}
	}
	entry := &collections.UserEntry{
		Settings:     req.Settings,
		Profile:      p,
		LikedUsers:   map[string]bool{},
		MatchedUsers: []string{},
	}
	entry.Settings.Email = req.Email
	if err := s.db.CreateUser(ctx, uid, entry); err != nil {
		// Without a document the account is unusable, so give the email back.
		if derr := s.accounts.DeleteAccount(ctx, uid); derr != nil {
			log.Printf("Could not roll back account %s: %v", uid, derr)
		}
		return "", apicodes.Wrap(err, "creating user document %s", uid)
	}
	return uid, nil
}

// CheckEmailDomain accepts emails whose domain is in allowed. A domain that is
// nearly an allowed one gets a "did you mean" hint instead of the generic refusal.
func CheckEmailDomain(email string, allowed []string) error {
	domain := ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain = strings.ToLower(strings.TrimSpace(email[at+1:]))
	}
	for _, d := range allowed {
		if domain == d {
			return nil
		}
	}
	if domain != "" {
		best, bestRatio := "", 0.0
		for _, d := range allowed {
			if r := similarity(domain, d); r > bestRatio {
				best, bestRatio = d, r
			}
		}
		if bestRatio >= typoRatio {
			return apicodes.Errorf(apicodes.BadRequest, "%s. Did you mean @%s?", apicodes.MsgDomainTypo, best)
		}
	}
	names := make([]string, 0, len(allowed))
	for _, d := range allowed {
		names = append(names, "@"+d)
	}
	return apicodes.Errorf(apicodes.BadRequest, apicodes.MsgDomainNotAllowedFormat, strings.Join(names, " or "))
}

// similarity is difflib's ratio over the characters of a and b.
func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
