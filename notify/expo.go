package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

const (
	expoProvider = "expo"

	// Time allowed for the push gateway to answer.
	expoTimeout = 10 * time.Second

	// The SDK appends this to its API base path.
	expoSendPath = "/push/send"
)

// ExpoSender delivers notifications through the Expo push service.
type ExpoSender struct {
	client *expo.PushClient
}

// NewExpoSender returns a sender posting to the full push endpoint sendURL,
// e.g. https://exp.host/--/api/v2/push/send. A nil client gets a default with a timeout.
func NewExpoSender(sendURL string, client *http.Client) *ExpoSender {
	if client == nil {
		client = &http.Client{Timeout: expoTimeout}
	}
	config := &expo.ClientConfig{HTTPClient: client}
	if u, err := url.Parse(sendURL); err == nil && u.Host != "" {
		config.Host = u.Scheme + "://" + u.Host
		config.APIURL = strings.TrimSuffix(u.Path, expoSendPath)
	}
	return &ExpoSender{client: expo.NewPushClient(config)}
}

// Send implements Sender. Tokens that are not Expo push tokens are rejected
// before anything is sent.
func (es *ExpoSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	token, err := expo.NewExponentPushToken(msg.Token)
	if err != nil {
		return nil, err
	}
	// The SDK takes no context, so a cancelled request is checked up front.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := es.client.Publish(&expo.PushMessage{
		To:    []expo.ExponentPushToken{token},
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
		Sound: "default",
	})
	if err != nil {
		return nil, fmt.Errorf("expo push: %w", err)
	}
	if err := resp.ValidateResponse(); err != nil {
		return nil, fmt.Errorf("expo push ticket: %w", err)
	}
	return &Result{Provider: expoProvider, ID: resp.ID}, nil
}
