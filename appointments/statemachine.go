package appointments

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/databases"
	"github.com/slotline/slotline-api/models"
)

// transitions is the lifecycle table: source status -> allowed action -> target
// status. Every (status, action) pair not listed here is a conflict. Rejected,
// Cancelled and Completed have no entries, so they are terminal.
var transitions = map[models.AppointmentStatus]map[models.Action]models.AppointmentStatus{
	models.StatusPending: {
		models.ActionApprove: models.StatusConfirmed,
		models.ActionReject:  models.StatusRejected,
		models.ActionCancel:  models.StatusCancelled,
	},
	models.StatusConfirmed: {
		models.ActionCancel:   models.StatusCancelled,
		models.ActionComplete: models.StatusCompleted,
	},
}

// StateMachine validates and applies appointment status transitions, owns the
// slot reservation side effects, and appends domain events to the outbox in
// the same durable unit as the status write.
type StateMachine struct {
	ADB databases.AppointmentDatabase
	SDB databases.SlotDatabase
	ODB databases.OutboxDatabase
	Txn databases.TxnRunner
}

// NewStateMachine wires a state machine over its storage dependencies
func NewStateMachine(adb databases.AppointmentDatabase, sdb databases.SlotDatabase, odb databases.OutboxDatabase, txn databases.TxnRunner) *StateMachine {
	return &StateMachine{ADB: adb, SDB: sdb, ODB: odb, Txn: txn}
}

// Book creates a Pending appointment for the requester against the provider's
// slot. The slot is reserved exclusively at booking time; a concurrent booking
// of the same (provider, date, time) observes models.ErrConflict. The
// reservation is released only by a later cancel or reject.
func (s *StateMachine) Book(ctx context.Context, requesterRef, providerRef, slotDate, slotTime string) (*models.Appointment, error) {
	if requesterRef == "" || providerRef == "" || slotDate == "" || slotTime == "" {
		return nil, fmt.Errorf("requesterRef, providerRef, slotDate and slotTime are required: %w", models.ErrValidation)
	}

	appointmentID := primitive.NewObjectID().Hex()
	if err := s.SDB.Reserve(ctx, providerRef, slotDate, slotTime, appointmentID); err != nil {
		return nil, err
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	appointment := models.Appointment{
		ID: appointmentID,
		Details: models.AppointmentDetails{
			RequesterRef: requesterRef,
			ProviderRef:  providerRef,
			SlotDate:     slotDate,
			SlotTime:     slotTime,
			Status:       models.StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	err := s.Txn.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.ADB.InsertOne(txCtx, appointment); err != nil {
			return err
		}
		return s.ODB.InsertOne(txCtx, models.DomainEvent{
			ID:            primitive.NewObjectID().Hex(),
			AppointmentID: appointmentID,
			ToStatus:      models.StatusPending,
			Action:        models.ActionBook,
			ActorRef:      requesterRef,
			ActorRole:     models.RoleRequester,
			CreatedAt:     now,
		})
	})
	if err != nil {
		// The appointment never existed, so hand the slot back
		if rerr := s.SDB.Release(ctx, providerRef, slotDate, slotTime); rerr != nil {
			zap.S().Errorw("failed to release slot after aborted booking",
				"providerRef", providerRef, "slotDate", slotDate, "slotTime", slotTime, "error", rerr)
		}
		return nil, err
	}
	return &appointment, nil
}

// Transition applies a lifecycle action to an appointment on behalf of an
// actor. On any failure no state is mutated. On success the status write, the
// slot side effect and the outbox append commit in one transaction.
func (s *StateMachine) Transition(ctx context.Context, appointmentID string, actor models.Actor, action models.Action) (*models.Appointment, error) {
	appointment, err := s.ADB.FindOne(ctx, bson.M{"_id": appointmentID})
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := authorize(appointment, actor, action); err != nil {
		return nil, err
	}

	fromStatus := appointment.Details.Status
	toStatus, ok := transitions[fromStatus][action]
	if !ok {
		return nil, fmt.Errorf("cannot %s an appointment in status %q: %w", action, fromStatus, models.ErrConflict)
	}

	if action == models.ActionApprove {
		// Booking already holds the reservation; approving an appointment whose
		// slot was somehow taken over is a conflict, never an overwrite.
		holder, err := s.SDB.Holder(ctx, appointment.Details.ProviderRef, appointment.Details.SlotDate, appointment.Details.SlotTime)
		if err != nil {
			return nil, err
		}
		if holder != "" && holder != appointmentID {
			return nil, fmt.Errorf("slot held by another appointment: %w", models.ErrConflict)
		}
		if holder == "" {
			if err := s.SDB.Reserve(ctx, appointment.Details.ProviderRef, appointment.Details.SlotDate, appointment.Details.SlotTime, appointmentID); err != nil {
				return nil, err
			}
		}
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	err = s.Txn.WithTransaction(ctx, func(txCtx context.Context) error {
		// Filter on the source status so a concurrent transition loses cleanly
		res, err := s.ADB.UpdateOne(txCtx,
			bson.M{"_id": appointmentID, "appointment.status": fromStatus},
			bson.M{"$set": bson.M{
				"appointment.status":    toStatus,
				"appointment.updatedAt": now,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("appointment %s no longer in status %q: %w", appointmentID, fromStatus, models.ErrConflict)
		}

		if action == models.ActionCancel || action == models.ActionReject {
			if err := s.SDB.Release(txCtx, appointment.Details.ProviderRef, appointment.Details.SlotDate, appointment.Details.SlotTime); err != nil {
				return err
			}
		}

		return s.ODB.InsertOne(txCtx, models.DomainEvent{
			ID:            primitive.NewObjectID().Hex(),
			AppointmentID: appointmentID,
			FromStatus:    fromStatus,
			ToStatus:      toStatus,
			Action:        action,
			ActorRef:      actor.Ref,
			ActorRole:     actor.Role,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	appointment.Details.Status = toStatus
	appointment.Details.UpdatedAt = now
	return appointment, nil
}

// MarkPaymentSettled flags the appointment's payment as settled and emits a
// payment domain event. Only the requester of the appointment or an admin may
// settle, and only once the appointment is confirmed or completed.
func (s *StateMachine) MarkPaymentSettled(ctx context.Context, appointmentID string, actor models.Actor) (*models.Appointment, error) {
	appointment, err := s.ADB.FindOne(ctx, bson.M{"_id": appointmentID})
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleRequester && actor.Ref == appointment.Details.RequesterRef) {
		return nil, fmt.Errorf("actor %s may not settle payment for appointment %s: %w", actor.Ref, appointmentID, models.ErrUnauthorized)
	}
	status := appointment.Details.Status
	if status != models.StatusConfirmed && status != models.StatusCompleted {
		return nil, fmt.Errorf("cannot settle payment in status %q: %w", status, models.ErrConflict)
	}
	if appointment.Details.PaymentSettled {
		return appointment, nil
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	err = s.Txn.WithTransaction(ctx, func(txCtx context.Context) error {
		res, err := s.ADB.UpdateOne(txCtx,
			bson.M{"_id": appointmentID, "appointment.paymentSettled": false},
			bson.M{"$set": bson.M{
				"appointment.paymentSettled": true,
				"appointment.updatedAt":      now,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// Already settled concurrently, nothing to emit
			return nil
		}
		return s.ODB.InsertOne(txCtx, models.DomainEvent{
			ID:            primitive.NewObjectID().Hex(),
			AppointmentID: appointmentID,
			FromStatus:    status,
			ToStatus:      status,
			Action:        models.ActionPayment,
			ActorRef:      actor.Ref,
			ActorRole:     actor.Role,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	appointment.Details.PaymentSettled = true
	appointment.Details.UpdatedAt = now
	return appointment, nil
}

// HardDelete removes an appointment entirely. Admin only. It bypasses the
// state machine: the slot is released but no domain event is emitted, so no
// notifications fan out.
func (s *StateMachine) HardDelete(ctx context.Context, appointmentID string, actor models.Actor) error {
	if actor.Role != models.RoleAdmin {
		return fmt.Errorf("hard delete requires the admin role: %w", models.ErrUnauthorized)
	}

	appointment, err := s.ADB.FindOne(ctx, bson.M{"_id": appointmentID})
	if err == mongo.ErrNoDocuments {
		return fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}
	if err != nil {
		return err
	}

	deleted, err := s.ADB.DeleteOne(ctx, bson.M{"_id": appointmentID})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}

	holder, err := s.SDB.Holder(ctx, appointment.Details.ProviderRef, appointment.Details.SlotDate, appointment.Details.SlotTime)
	if err != nil {
		return err
	}
	if holder == appointmentID {
		return s.SDB.Release(ctx, appointment.Details.ProviderRef, appointment.Details.SlotDate, appointment.Details.SlotTime)
	}
	return nil
}

// FindByID loads a single appointment, gated to its parties and admins
func (s *StateMachine) FindByID(ctx context.Context, appointmentID string, actor models.Actor) (*models.Appointment, error) {
	appointment, err := s.ADB.FindOne(ctx, bson.M{"_id": appointmentID})
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !isParty(appointment, actor) && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("actor %s is not party to appointment %s: %w", actor.Ref, appointmentID, models.ErrUnauthorized)
	}
	return appointment, nil
}

// List returns the caller's side of the appointment book: requesters and
// providers see their own appointments, admins see everything, newest first.
func (s *StateMachine) List(ctx context.Context, actor models.Actor) ([]models.Appointment, error) {
	filter := bson.M{}
	switch actor.Role {
	case models.RoleRequester:
		filter = bson.M{"appointment.requesterRef": actor.Ref}
	case models.RoleProvider:
		filter = bson.M{"appointment.providerRef": actor.Ref}
	case models.RoleAdmin:
	default:
		return nil, fmt.Errorf("unknown role %q: %w", actor.Role, models.ErrUnauthorized)
	}

	appointments, err := s.ADB.Find(ctx, filter, &options.FindOptions{Sort: bson.D{{Key: "appointment.createdAt", Value: -1}}})
	if err != nil {
		return nil, err
	}
	if len(appointments) == 0 {
		appointments = []models.Appointment{}
	}
	return appointments, nil
}

func isParty(appointment *models.Appointment, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleRequester:
		return actor.Ref == appointment.Details.RequesterRef
	case models.RoleProvider:
		return actor.Ref == appointment.Details.ProviderRef
	}
	return false
}

// authorize checks the actor against the action's required side of the
// appointment: approve/reject/complete belong to the provider, cancel to
// either party.
func authorize(appointment *models.Appointment, actor models.Actor, action models.Action) error {
	switch action {
	case models.ActionApprove, models.ActionReject, models.ActionComplete:
		if actor.Role == models.RoleProvider && actor.Ref == appointment.Details.ProviderRef {
			return nil
		}
	case models.ActionCancel:
		if isParty(appointment, actor) {
			return nil
		}
	}
	return fmt.Errorf("actor %s (%s) may not %s appointment %s: %w", actor.Ref, actor.Role, action, appointment.ID, models.ErrUnauthorized)
}
