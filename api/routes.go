package api

import (
	"net/http"

	"swipeserver/apicodes"
	"swipeserver/collections"
	"swipeserver/match"
	"swipeserver/profile"
)

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	body := map[string]interface{}{}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	req, err := profile.DecodeCreateRequest(body)
	if err != nil {
		return apicodes.As(err)
	}
	uid, err := s.profiles.CreateUser(r.Context(), req)
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"user_id": uid,
	})
	return nil
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	user, err := s.profiles.Get(r.Context(), caller(r))
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, user)
	return nil
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	fields := map[string]interface{}{}
	if err := decodeBody(r, &fields); err != nil {
		return err
	}
	user, err := s.profiles.UpdateSettings(r.Context(), caller(r), fields)
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, user)
	return nil
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	fields := map[string]interface{}{}
	if err := decodeBody(r, &fields); err != nil {
		return err
	}
	user, err := s.profiles.UpdateProfile(r.Context(), caller(r), fields)
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, user)
	return nil
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	if err := s.profiles.DeleteAccount(r.Context(), caller(r)); err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account successfully deleted"})
	return nil
}

type notificationTokenRequest struct {
	UserID string `json:"userID"`
	Token  string `json:"token"`
}

func (s *Server) setNotificationToken(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	req := &notificationTokenRequest{}
	if err := decodeBody(r, req); err != nil {
		return err
	}
	if err := s.profiles.SetNotificationToken(r.Context(), caller(r), req.UserID, req.Token); err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Notification token saved"})
	return nil
}

func (s *Server) suggestedUsers(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	body := map[string]interface{}{}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	filter, err := match.DecodeFilter(body)
	if err != nil {
		return apicodes.As(err)
	}
	users, err := s.matches.Suggested(r.Context(), caller(r), filter)
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, map[string][]collections.Candidate{"users": users})
	return nil
}

type swipeRequest struct {
	SwipedID string `json:"swipedID"`
	// Older clients send the snake case key.
	LegacySwipedID string `json:"swiped_id"`
}

func (s *Server) swipe(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	req := &swipeRequest{}
	if err := decodeBody(r, req); err != nil {
		return err
	}
	target := req.SwipedID
	if target == "" {
		target = req.LegacySwipedID
	}
	result, err := s.matches.Swipe(r.Context(), caller(r), target)
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func (s *Server) getMatches(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	matches, err := s.matches.Matches(r.Context(), caller(r))
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, map[string][]collections.Candidate{"matches": matches})
	return nil
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	messages, err := s.conversations.Get(r.Context(), caller(r), r.URL.Query().Get("targetID"))
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, map[string][]collections.MessageEntry{"messages": messages})
	return nil
}

type messageRequest struct {
	TargetID string `json:"targetID"`
	Message  string `json:"message"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	req := &messageRequest{}
	if err := decodeBody(r, req); err != nil {
		return err
	}
	messageID, err := s.conversations.Send(r.Context(), caller(r), req.TargetID, req.Message)
	if err != nil {
		return apicodes.As(err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageID": messageID,
	})
	return nil
}

func (s *Server) liveConversation(w http.ResponseWriter, r *http.Request) *apicodes.Error {
	if err := s.live.ServeWs(caller(r), r.URL.Query().Get("targetID"), w, r); err != nil {
		return apicodes.As(err)
	}
	return nil
}
