package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/databases"
	"github.com/slotline/slotline-api/models"
	"github.com/slotline/slotline-api/realtime"
)

// eventTypes maps each domain-event action to its notification type tag
var eventTypes = map[models.Action]models.NotificationType{
	models.ActionBook:     models.NotificationAppointmentBook,
	models.ActionApprove:  models.NotificationAppointmentApprove,
	models.ActionReject:   models.NotificationAppointmentReject,
	models.ActionCancel:   models.NotificationAppointmentCancel,
	models.ActionComplete: models.NotificationAppointmentComplete,
	models.ActionPayment:  models.NotificationPayment,
}

type recipient struct {
	ref  string
	role models.Role
}

// Dispatcher consumes domain events from the outbox, resolves the affected
// recipients, persists one deduplicated notification per recipient, and pushes
// best-effort live events through the realtime router. It also owns the
// read-state operations on the notification store.
type Dispatcher struct {
	NDB    databases.NotificationDatabase
	ADB    databases.AppointmentDatabase
	AccDB  databases.AccountDatabase
	ODB    databases.OutboxDatabase
	Router realtime.Publisher
}

// NewDispatcher wires a dispatcher over its storage and routing dependencies
func NewDispatcher(ndb databases.NotificationDatabase, adb databases.AppointmentDatabase, accdb databases.AccountDatabase, odb databases.OutboxDatabase, router realtime.Publisher) *Dispatcher {
	return &Dispatcher{NDB: ndb, ADB: adb, AccDB: accdb, ODB: odb, Router: router}
}

// DedupKey derives the identifier preventing duplicate notification creation
// for the same event and recipient
func DedupKey(notificationType models.NotificationType, subjectID, recipientRef string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", notificationType, subjectID, recipientRef)))
	return hex.EncodeToString(sum[:])
}

// Drain processes all pending outbox events. Events whose fan-out fully
// persisted are marked dispatched; anything else stays pending for the next
// pass, with dedup keys guaranteeing at-least-once never becomes more-than-once.
func (d *Dispatcher) Drain(ctx context.Context) {
	events, err := d.ODB.FindPending(ctx, 100)
	if err != nil {
		zap.S().Errorw("failed to read pending outbox events", "error", err)
		return
	}
	for _, event := range events {
		if err := d.Dispatch(ctx, event); err != nil {
			zap.S().Errorw("dispatch failed, leaving event pending",
				"eventId", event.ID, "action", event.Action, "error", err)
			if err := d.ODB.IncrementAttempts(ctx, event.ID); err != nil {
				zap.S().Errorw("failed to bump outbox attempts", "eventId", event.ID, "error", err)
			}
			continue
		}
		if err := d.ODB.MarkDispatched(ctx, event.ID); err != nil {
			zap.S().Errorw("failed to mark event dispatched", "eventId", event.ID, "error", err)
		}
	}
}

// Dispatch fans a single domain event out to every resolved recipient. Each
// recipient is independent: one failed persist does not abort the others, and
// a failed live push never rolls anything back.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.DomainEvent) error {
	notificationType, ok := eventTypes[event.Action]
	if !ok {
		zap.S().Warnw("outbox event with unknown action, skipping", "eventId", event.ID, "action", event.Action)
		return nil
	}

	appointment, err := d.ADB.FindOne(ctx, bson.M{"_id": event.AppointmentID})
	if err == mongo.ErrNoDocuments {
		// Hard-deleted since the event was appended; nothing to announce
		zap.S().Infow("appointment gone, dropping event", "eventId", event.ID, "appointmentId", event.AppointmentID)
		return nil
	}
	if err != nil {
		return err
	}

	recipients, err := d.resolve(ctx, event, appointment)
	if err != nil {
		return err
	}
	tc := d.templateContext(ctx, appointment)

	var failed int
	adminNotified := false
	for _, rcpt := range recipients {
		if err := d.deliver(ctx, event, notificationType, appointment, rcpt, tc); err != nil {
			zap.S().Errorw("failed to deliver to recipient",
				"eventId", event.ID, "recipientRef", rcpt.ref, "recipientRole", rcpt.role, "error", err)
			failed++
			continue
		}
		if rcpt.role == models.RoleAdmin {
			adminNotified = true
		}
	}

	if adminNotified {
		content, _ := renderContent(notificationType, tc)
		d.Router.Publish(realtime.BroadcastRoom(models.RoleAdmin), "notification", map[string]interface{}{
			"type":          notificationType,
			"appointmentId": event.AppointmentID,
			"content":       content,
		})
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d recipients failed for event %s", failed, len(recipients), event.ID)
	}
	return nil
}

// deliver persists one notification for one recipient and pushes the live
// event to that recipient's identity room
func (d *Dispatcher) deliver(ctx context.Context, event models.DomainEvent, notificationType models.NotificationType, appointment *models.Appointment, rcpt recipient, tc templateContext) error {
	dedupKey := DedupKey(notificationType, event.AppointmentID, rcpt.ref)
	count, err := d.NDB.CountDocuments(ctx, bson.M{"dedupKey": dedupKey})
	if err != nil {
		return err
	}
	if count > 0 {
		// Idempotent re-dispatch
		return nil
	}

	content, err := renderContent(notificationType, tc)
	if err != nil {
		return err
	}

	notification := models.Notification{
		ID:            primitive.NewObjectID().Hex(),
		RecipientRef:  rcpt.ref,
		RecipientRole: rcpt.role,
		SenderRef:     event.ActorRef,
		SenderRole:    event.ActorRole,
		Type:          notificationType,
		Content:       content,
		Link:          fmt.Sprintf("/appointments/%s", appointment.ID),
		DedupKey:      dedupKey,
		CreatedAt:     primitive.NewDateTimeFromTime(time.Now()),
	}
	if err := d.NDB.InsertOne(ctx, notification); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a dedup race, which is the same as having already delivered
			return nil
		}
		return err
	}

	d.Router.Publish(realtime.RoomFor(rcpt.role, rcpt.ref), "notification", notification)
	return nil
}

// resolve maps a domain event to its recipient set: book and payment go to the
// provider, approve/reject to the requester plus admins, cancel to the other
// party plus admins, complete to the requester.
func (d *Dispatcher) resolve(ctx context.Context, event models.DomainEvent, appointment *models.Appointment) ([]recipient, error) {
	var recipients []recipient
	withAdmins := false

	switch event.Action {
	case models.ActionBook, models.ActionPayment:
		recipients = append(recipients, recipient{ref: appointment.Details.ProviderRef, role: models.RoleProvider})
	case models.ActionApprove, models.ActionReject:
		recipients = append(recipients, recipient{ref: appointment.Details.RequesterRef, role: models.RoleRequester})
		withAdmins = true
	case models.ActionCancel:
		if event.ActorRole == models.RoleProvider {
			recipients = append(recipients, recipient{ref: appointment.Details.RequesterRef, role: models.RoleRequester})
		} else {
			recipients = append(recipients, recipient{ref: appointment.Details.ProviderRef, role: models.RoleProvider})
		}
		withAdmins = true
	case models.ActionComplete:
		recipients = append(recipients, recipient{ref: appointment.Details.RequesterRef, role: models.RoleRequester})
	}

	if withAdmins {
		admins, err := d.AccDB.Find(ctx, bson.M{"account.role": models.RoleAdmin})
		if err != nil {
			return nil, err
		}
		for _, admin := range admins {
			recipients = append(recipients, recipient{ref: admin.ID, role: models.RoleAdmin})
		}
	}
	return recipients, nil
}

func (d *Dispatcher) templateContext(ctx context.Context, appointment *models.Appointment) templateContext {
	return templateContext{
		RequesterName: d.accountName(ctx, appointment.Details.RequesterRef),
		ProviderName:  d.accountName(ctx, appointment.Details.ProviderRef),
		SlotDate:      appointment.Details.SlotDate,
		SlotTime:      appointment.Details.SlotTime,
	}
}

// accountName resolves a display name, falling back to the ref when the
// account is unknown so rendering never blocks a dispatch
func (d *Dispatcher) accountName(ctx context.Context, ref string) string {
	account, err := d.AccDB.FindOne(ctx, bson.M{"_id": ref})
	if err != nil || account.Details.Name == "" {
		return ref
	}
	return account.Details.Name
}

// DispatchMessage persists the message-type notification for a chat recipient
// and pushes it to their identity room. Called by the chat relay; the chat
// message itself is already durable, so failure here is best-effort territory.
func (d *Dispatcher) DispatchMessage(ctx context.Context, messageID string, sender, rcpt models.Actor, link string) error {
	dedupKey := DedupKey(models.NotificationMessage, messageID, rcpt.Ref)
	count, err := d.NDB.CountDocuments(ctx, bson.M{"dedupKey": dedupKey})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	content, err := renderContent(models.NotificationMessage, templateContext{SenderName: d.accountName(ctx, sender.Ref)})
	if err != nil {
		return err
	}

	notification := models.Notification{
		ID:            primitive.NewObjectID().Hex(),
		RecipientRef:  rcpt.Ref,
		RecipientRole: rcpt.Role,
		SenderRef:     sender.Ref,
		SenderRole:    sender.Role,
		Type:          models.NotificationMessage,
		Content:       content,
		Link:          link,
		DedupKey:      dedupKey,
		CreatedAt:     primitive.NewDateTimeFromTime(time.Now()),
	}
	if err := d.NDB.InsertOne(ctx, notification); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	}

	d.Router.Publish(realtime.RoomFor(rcpt.Role, rcpt.Ref), "notification", notification)
	return nil
}

// List returns every notification owned by the caller, newest first, with the
// derived unread count
func (d *Dispatcher) List(ctx context.Context, caller models.Actor) (*models.NotificationList, error) {
	filter := bson.M{"recipientRef": caller.Ref, "recipientRole": caller.Role}
	notifications, err := d.NDB.Find(ctx, filter, &options.FindOptions{Sort: bson.D{{Key: "createdAt", Value: -1}}})
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		notifications = []models.Notification{}
	}
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return &models.NotificationList{Notifications: notifications, UnreadCount: unread}, nil
}

// MarkRead sets read=true on a single notification owned by the caller
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID string, caller models.Actor) error {
	notification, err := d.NDB.FindOne(ctx, bson.M{"_id": notificationID})
	if err == mongo.ErrNoDocuments {
		return fmt.Errorf("notification %s: %w", notificationID, models.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if notification.RecipientRef != caller.Ref || notification.RecipientRole != caller.Role {
		return fmt.Errorf("notification %s is not owned by %s (%s): %w", notificationID, caller.Ref, caller.Role, models.ErrUnauthorized)
	}
	_, err = d.NDB.UpdateOne(ctx, bson.M{"_id": notificationID}, bson.M{"$set": bson.M{"read": true}})
	return err
}

// MarkAllRead bulk-sets read=true for the caller's unread notifications. A
// caller with nothing unread is a successful no-op.
func (d *Dispatcher) MarkAllRead(ctx context.Context, caller models.Actor) error {
	filter := bson.M{"recipientRef": caller.Ref, "recipientRole": caller.Role, "read": false}
	_, err := d.NDB.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	return err
}

// Delete removes a single notification owned by the caller
func (d *Dispatcher) Delete(ctx context.Context, notificationID string, caller models.Actor) error {
	notification, err := d.NDB.FindOne(ctx, bson.M{"_id": notificationID})
	if err == mongo.ErrNoDocuments {
		return fmt.Errorf("notification %s: %w", notificationID, models.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if notification.RecipientRef != caller.Ref || notification.RecipientRole != caller.Role {
		return fmt.Errorf("notification %s is not owned by %s (%s): %w", notificationID, caller.Ref, caller.Role, models.ErrUnauthorized)
	}
	_, err = d.NDB.DeleteOne(ctx, bson.M{"_id": notificationID})
	return err
}

// Purge is the administrative bulk delete of already-read notifications
func (d *Dispatcher) Purge(ctx context.Context, caller models.Actor) (int64, error) {
	if caller.Role != models.RoleAdmin {
		return 0, fmt.Errorf("purge requires the admin role: %w", models.ErrUnauthorized)
	}
	return d.NDB.DeleteMany(ctx, bson.M{"read": true})
}
