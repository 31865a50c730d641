package hub

import (
	"context"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
)

// processMessage answers one client request. The reply always goes to the origin;
// the stored message itself reaches everyone through the listener.
func (h *Hub) processMessage(message *Message) *Message {
	switch message.Endpoint {
	case endpointSendMessage:
		return h.handleSendMessage(message)
	default:
		log.Printf("Message endpoint: %s is not supported", message.Endpoint)
		return toOriginWithStatus(message, statusEndpointNotValid, "")
	}
}

func (h *Hub) handleSendMessage(message *Message) *Message {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	userID := message.client.userID
	messageID, err := h.svc.Send(ctx, userID, h.peerOf(userID), message.Text)
	if err != nil {
		apiErr := apicodes.As(err)
		if apiErr.Kind == apicodes.Internal {
			log.Printf("Error sending message in hub %s: %v", h.id, err)
		}
		return toOriginWithStatus(message, statusFailure, apiErr.PublicMessage())
	}
	ret := toOriginWithStatus(message, statusSuccess, "")
	ret.ConversationID = h.id
	ret.MessageID = messageID
	return ret
}
