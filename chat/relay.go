package chat

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/databases"
	"github.com/slotline/slotline-api/models"
	"github.com/slotline/slotline-api/realtime"
)

// Notifier creates the message-type notification record for a chat recipient.
// Satisfied by the notification dispatcher.
type Notifier interface {
	DispatchMessage(ctx context.Context, messageID string, sender, recipient models.Actor, link string) error
}

// RoomID derives the room for a pairwise conversation. The lower ref sorts
// first, so both participants compute the identical id without coordination.
func RoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("chat-%s-%s", a, b)
}

// Relay is the pairwise messaging component built on the room router. The
// persisted message log is authoritative; the live push is best-effort.
type Relay struct {
	CDB      databases.ChatMessageDatabase
	Router   realtime.Publisher
	Notifier Notifier
}

// NewRelay wires a chat relay over its storage, routing and notification dependencies
func NewRelay(cdb databases.ChatMessageDatabase, router realtime.Publisher, notifier Notifier) *Relay {
	return &Relay{CDB: cdb, Router: router, Notifier: notifier}
}

// Send persists a chat message, pushes it to the pair's room, and records a
// message notification for the recipient. Participants only receive the live
// push if they have joined the room; history and the notification store cover
// everyone else.
func (r *Relay) Send(ctx context.Context, sender, recipient models.Actor, content string) (*models.ChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("message content is required: %w", models.ErrValidation)
	}
	if sender.Ref == "" || recipient.Ref == "" || !sender.Role.Valid() || !recipient.Role.Valid() {
		return nil, fmt.Errorf("sender and recipient identities are required: %w", models.ErrValidation)
	}
	if sender.Ref == recipient.Ref {
		return nil, fmt.Errorf("cannot message yourself: %w", models.ErrValidation)
	}

	message := models.ChatMessage{
		ID:            primitive.NewObjectID().Hex(),
		SenderRef:     sender.Ref,
		SenderRole:    sender.Role,
		RecipientRef:  recipient.Ref,
		RecipientRole: recipient.Role,
		Content:       content,
		Timestamp:     primitive.NewDateTimeFromTime(time.Now()),
	}
	if err := r.CDB.InsertOne(ctx, message); err != nil {
		return nil, err
	}

	roomID := RoomID(sender.Ref, recipient.Ref)
	r.Router.Publish(roomID, "chat_message", message)

	link := fmt.Sprintf("/chat/%s", sender.Ref)
	if err := r.Notifier.DispatchMessage(ctx, message.ID, sender, recipient, link); err != nil {
		zap.S().Errorw("failed to record message notification",
			"messageId", message.ID, "recipientRef", recipient.Ref, "error", err)
	}
	return &message, nil
}

// ListMessages returns the full conversation between two participants in
// chronological order. It queries by the pair directly, so it works whether or
// not either side has joined the live room.
func (r *Relay) ListMessages(ctx context.Context, a, b string) ([]models.ChatMessage, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderRef": a, "recipientRef": b},
		bson.M{"senderRef": b, "recipientRef": a},
	}}
	messages, err := r.CDB.Find(ctx, filter, &options.FindOptions{Sort: bson.D{{Key: "timestamp", Value: 1}}})
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// OpenConversation bulk-marks as read every message the counterpart sent to
// the viewer. Called when the viewer opens the conversation view.
func (r *Relay) OpenConversation(ctx context.Context, viewer models.Actor, counterpartRef string) error {
	filter := bson.M{
		"senderRef":    counterpartRef,
		"recipientRef": viewer.Ref,
		"read":         false,
	}
	_, err := r.CDB.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	return err
}
