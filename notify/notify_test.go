package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/messaging"
)

type fakeSender struct {
	sent []*Message
	err  error
}

func (fs *fakeSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	if fs.err != nil {
		return nil, fs.err
	}
	fs.sent = append(fs.sent, msg)
	return &Result{Provider: "fake", ID: "1"}, nil
}

func TestDispatcherSend(t *testing.T) {
	cases := []struct {
		name      string
		token     string
		senderErr error
		wantErr   error
		wantSent  int
	}{
		{
			name:     "delivers with token",
			token:    "ExponentPushToken[abc]",
			wantSent: 1,
		},
		{
			name:    "missing token is reported but not sent",
			token:   "",
			wantErr: ErrNoToken,
		},
		{
			name:      "gateway failure surfaces",
			token:     "ExponentPushToken[abc]",
			senderErr: errors.New("boom"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeSender{err: tc.senderErr}
			d := NewDispatcher(sender)
			_, err := d.Send(context.Background(), tc.token, "title", "body", nil)
			switch {
			case tc.wantErr != nil && !errors.Is(err, tc.wantErr):
				t.Errorf("Send gave error %v, want %v", err, tc.wantErr)
			case tc.senderErr != nil && err == nil:
				t.Error("Send gave no error when the gateway failed")
			case tc.wantErr == nil && tc.senderErr == nil && err != nil:
				t.Errorf("Send gave error %v when not expecting one", err)
			}
			if len(sender.sent) != tc.wantSent {
				t.Errorf("Send delivered %d messages, want %d", len(sender.sent), tc.wantSent)
			}
		})
	}
}

// expoPush is the part of an Expo push request the tests look at.
type expoPush struct {
	To   []string          `json:"to"`
	Data map[string]string `json:"data"`
}

func TestExpoSender(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		status   int
		response string
		wantErr  bool
		wantID   string
	}{
		{
			name:     "ok ticket",
			status:   http.StatusOK,
			response: `{"data":[{"status":"ok","id":"ticket-1"}]}`,
			wantID:   "ticket-1",
		},
		{
			name:     "error ticket",
			status:   http.StatusOK,
			response: `{"data":[{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}]}`,
			wantErr:  true,
		},
		{
			name:     "request errors",
			status:   http.StatusOK,
			response: `{"errors":[{"code":"VALIDATION_ERROR","message":"bad to"}]}`,
			wantErr:  true,
		},
		{
			name:     "gateway down",
			status:   http.StatusBadGateway,
			response: `upstream`,
			wantErr:  true,
		},
		{
			name:    "not an expo token",
			token:   "fcm-registration-id",
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := tc.token
			if token == "" {
				token = "ExponentPushToken[abc]"
			}
			var got []expoPush
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				if r.Method != http.MethodPost {
					t.Errorf("gateway got method %s, want POST", r.Method)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("gateway could not decode body: %v", err)
				}
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.response))
			}))
			defer server.Close()

			sender := NewExpoSender(server.URL+"/--/api/v2/push/send", server.Client())
			result, err := sender.Send(context.Background(), &Message{
				Token: token,
				Title: "It's a match!",
				Body:  "You matched with Alice",
				Data:  map[string]string{DataTypeKey: DataTypeMatch},
			})
			if (err != nil) != tc.wantErr {
				t.Fatalf("Send gave error %v, wantErr %t", err, tc.wantErr)
			}
			if tc.token != "" {
				if got != nil {
					t.Errorf("an invalid token reached the gateway: %+v", got)
				}
				return
			}
			if path != "/--/api/v2/push/send" {
				t.Errorf("gateway got path %q", path)
			}
			if len(got) != 1 || len(got[0].To) != 1 || got[0].To[0] != token || got[0].Data[DataTypeKey] != DataTypeMatch {
				t.Errorf("gateway got request %+v", got)
			}
			if !tc.wantErr && result.ID != tc.wantID {
				t.Errorf("Send gave id %q, want %q", result.ID, tc.wantID)
			}
		})
	}
}

type fakeFCM struct {
	got *messaging.Message
}

func (ff *fakeFCM) Send(ctx context.Context, message *messaging.Message) (string, error) {
	ff.got = message
	return "projects/p/messages/1", nil
}

func TestFCMSender(t *testing.T) {
	client := &fakeFCM{}
	sender := &FCMSender{client: client}
	result, err := sender.Send(context.Background(), &Message{Token: "tok", Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Send gave error %v", err)
	}
	if result.Provider != fcmProvider || result.ID != "projects/p/messages/1" {
		t.Errorf("Send gave result %+v", result)
	}
	if client.got.Token != "tok" || client.got.Notification.Title != "t" {
		t.Errorf("FCM got message %+v", client.got)
	}
}

func TestMessageNotification(t *testing.T) {
	long := strings.Repeat("a", 150)
	title, body := MessageNotification("", long)
	if title != "Someone sent a message" {
		t.Errorf("title = %q", title)
	}
	if want := strings.Repeat("a", 100) + "..."; body != want {
		t.Errorf("body has length %d, want %d", len(body), len(want))
	}

	_, body = MatchNotification("Alice")
	if body != "You matched with Alice" {
		t.Errorf("match body = %q", body)
	}
}
