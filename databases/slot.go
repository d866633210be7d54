package databases

// go generate: mockery --name SlotDatabase

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/slotline/slotline-api/models"
)

const slotName = "slots"

// SlotKey builds the document id for a (providerRef, slotDate, slotTime) unit
// of booking capacity
func SlotKey(providerRef, slotDate, slotTime string) string {
	return fmt.Sprintf("%s|%s|%s", providerRef, slotDate, slotTime)
}

// SlotDatabase contains the methods to use with the slot reservation database.
// Reserve is the atomic conditional write guarding double booking: a second
// concurrent reserve of the same key observes models.ErrConflict.
type SlotDatabase interface {
	Reserve(ctx context.Context, providerRef, slotDate, slotTime, appointmentID string) error
	Release(ctx context.Context, providerRef, slotDate, slotTime string) error
	Holder(ctx context.Context, providerRef, slotDate, slotTime string) (string, error)
}

type slotDatabase struct {
	db DatabaseHelper
}

// NewSlotDatabase initializes a new instance of slot database with the provided db connection
func NewSlotDatabase(db DatabaseHelper) SlotDatabase {
	return &slotDatabase{
		db: db,
	}
}

func (s *slotDatabase) Reserve(ctx context.Context, providerRef, slotDate, slotTime, appointmentID string) error {
	key := SlotKey(providerRef, slotDate, slotTime)
	doc := models.SlotReservation{
		ID:            key,
		ProviderRef:   providerRef,
		SlotDate:      slotDate,
		SlotTime:      slotTime,
		AppointmentID: appointmentID,
		ReservedAt:    primitive.NewDateTimeFromTime(time.Now()),
	}

	_, err := s.db.Collection(slotName).InsertOne(ctx, doc)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}

	// The key exists. Reserving a slot already held by the same appointment is
	// a no-op; held by anyone else it is a conflict.
	holder, herr := s.Holder(ctx, providerRef, slotDate, slotTime)
	if herr != nil {
		return herr
	}
	if holder == appointmentID {
		return nil
	}
	return fmt.Errorf("slot %s already reserved: %w", key, models.ErrConflict)
}

func (s *slotDatabase) Release(ctx context.Context, providerRef, slotDate, slotTime string) error {
	// Releasing an already-released slot is a no-op, not an error
	_, err := s.db.Collection(slotName).DeleteOne(ctx, bson.M{"_id": SlotKey(providerRef, slotDate, slotTime)})
	return err
}

func (s *slotDatabase) Holder(ctx context.Context, providerRef, slotDate, slotTime string) (string, error) {
	reservation := &models.SlotReservation{}
	err := s.db.Collection(slotName).FindOne(ctx, bson.M{"_id": SlotKey(providerRef, slotDate, slotTime)}).Decode(&reservation)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return reservation.AppointmentID, nil
}
