package hub

import "swipeserver/collections"

const (
	// Sent by the server once a client has joined the conversation hub.
	endpointConnected = "CONNECTED"
	// Broadcast for every message stored in the conversation.
	endpointNewMessage = "NEW_MESSAGE"
	// Sent by a client to post a message; answered to the origin only.
	endpointSendMessage = "SEND_MESSAGE"

	routeBroadcast = "BROADCAST"
	routeOrigin    = "ORIGIN"

	statusSuccess          = "OK"
	statusFailure          = "FAILED"
	statusEndpointNotValid = "ENDPOINT_NOT_VALID"
)

// Message defines the websocket message between the app and this server.
type Message struct {
	// UID is chosen by the client to pair a reply with its request.
	UID      string `json:"uid,omitempty"`
	Endpoint string `json:"endpoint"`
	Route    string `json:"route,omitempty"`
	Status   string `json:"status,omitempty"`
	Text     string `json:"text,omitempty"`

	ConversationID string                    `json:"conversationID,omitempty"`
	MessageID      string                    `json:"messageID,omitempty"`
	Message        *collections.MessageEntry `json:"message,omitempty"`

	client *Client
}

func toOriginWithStatus(message *Message, status string, text string) *Message {
	return &Message{
		UID:      message.UID,
		Status:   status,
		Text:     text,
		Endpoint: message.Endpoint,
		Route:    routeOrigin,
		client:   message.client,
	}
}
