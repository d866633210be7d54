package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/slotline/slotline-api/api"
	"github.com/slotline/slotline-api/chat"
	"github.com/slotline/slotline-api/config"
	"github.com/slotline/slotline-api/models"
)

// Chat exported for testing purposes
type Chat struct {
	Relay *chat.Relay
}

type sendMessageRequest struct {
	RecipientRef  string      `json:"recipientRef"`
	RecipientRole models.Role `json:"recipientRole"`
	Content       string      `json:"content"`
}

// SendHandler persists a chat message and pushes it to the pair's room
func (h Chat) SendHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	var requestBody sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	recipient := models.Actor{Ref: requestBody.RecipientRef, Role: requestBody.RecipientRole}
	message, err := h.Relay.Send(r.Context(), actor, recipient, requestBody.Content)
	if err != nil {
		config.ErrorStatus("failed to send message", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

// ListMessagesHandler returns the conversation between the caller and the
// counterpart in chronological order
func (h Chat) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	counterpartRef := mux.Vars(r)["counterpart_ref"]
	messages, err := h.Relay.ListMessages(r.Context(), actor.Ref, counterpartRef)
	if err != nil {
		config.ErrorStatus("failed to get messages", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(messages)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// OpenConversationHandler marks every message from the counterpart to the
// caller as read
func (h Chat) OpenConversationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	counterpartRef := mux.Vars(r)["counterpart_ref"]
	if err := h.Relay.OpenConversation(r.Context(), actor, counterpartRef); err != nil {
		config.ErrorStatus("failed to open conversation", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Conversation marked as read",
	})
}
