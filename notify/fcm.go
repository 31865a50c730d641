package notify

import (
	"context"

	"firebase.google.com/go/messaging"
)

const fcmProvider = "fcm"

// fcmClient is the part of *messaging.Client FCMSender uses.
type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client fcmClient
}

// NewFCMSender wraps a messaging client, usually from firebase.App.Messaging.
func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

// Send implements Sender.
func (fs *FCMSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	id, err := fs.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Provider: fcmProvider, ID: id}, nil
}
