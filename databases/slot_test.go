package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/slotline/slotline-api/databases"
	"github.com/slotline/slotline-api/databases/mocks"
	"github.com/slotline/slotline-api/models"
)

func duplicateKeyError() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "prov1|2026-09-01|10:00", databases.SlotKey("prov1", "2026-09-01", "10:00"))
}

func TestSlotDatabase_Reserve(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("InsertOne", mock.Anything, mock.MatchedBy(func(doc models.SlotReservation) bool {
		return doc.ID == "prov1|2026-09-01|10:00" && doc.AppointmentID == "appt1"
	})).Return("prov1|2026-09-01|10:00", nil)
	db.On("Collection", "slots").Return(conn)

	sdb := databases.NewSlotDatabase(db)
	err := sdb.Reserve(context.Background(), "prov1", "2026-09-01", "10:00", "appt1")

	assert.NoError(t, err)
}

func TestSlotDatabase_Reserve_HeldByAnother(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	conn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, duplicateKeyError())
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		reservation := args.Get(0).(**models.SlotReservation)
		(*reservation).AppointmentID = "other-appt"
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "slots").Return(conn)

	sdb := databases.NewSlotDatabase(db)
	err := sdb.Reserve(context.Background(), "prov1", "2026-09-01", "10:00", "appt1")

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSlotDatabase_Reserve_SameAppointmentIsNoop(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	conn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, duplicateKeyError())
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		reservation := args.Get(0).(**models.SlotReservation)
		(*reservation).AppointmentID = "appt1"
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "slots").Return(conn)

	sdb := databases.NewSlotDatabase(db)
	err := sdb.Reserve(context.Background(), "prov1", "2026-09-01", "10:00", "appt1")

	assert.NoError(t, err)
}

func TestSlotDatabase_Reserve_OtherInsertError(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	db.On("Collection", "slots").Return(conn)

	sdb := databases.NewSlotDatabase(db)
	err := sdb.Reserve(context.Background(), "prov1", "2026-09-01", "10:00", "appt1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrConflict)
}

func TestSlotDatabase_Release_Idempotent(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	// nothing deleted is still a successful release
	conn.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(0), nil)
	db.On("Collection", "slots").Return(conn)

	sdb := databases.NewSlotDatabase(db)
	err := sdb.Release(context.Background(), "prov1", "2026-09-01", "10:00")

	assert.NoError(t, err)
}

func TestSlotDatabase_Holder_FreeSlot(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "slots").Return(conn)

	sdb := databases.NewSlotDatabase(db)
	holder, err := sdb.Holder(context.Background(), "prov1", "2026-09-01", "10:00")

	assert.NoError(t, err)
	assert.Equal(t, "", holder)
}
