package appointments_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/slotline/slotline-api/appointments"
	"github.com/slotline/slotline-api/databases/mocks"
	"github.com/slotline/slotline-api/models"
)

// txnRunnerStub executes fn inline, or fails without running it
type txnRunnerStub struct {
	err error
}

func (t txnRunnerStub) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if t.err != nil {
		return t.err
	}
	return fn(ctx)
}

func pendingAppointment() *models.Appointment {
	return &models.Appointment{
		ID: "appt1",
		Details: models.AppointmentDetails{
			RequesterRef: "req1",
			ProviderRef:  "prov1",
			SlotDate:     "2026-09-01",
			SlotTime:     "10:00",
			Status:       models.StatusPending,
		},
	}
}

func confirmedAppointment() *models.Appointment {
	a := pendingAppointment()
	a.Details.Status = models.StatusConfirmed
	return a
}

func TestStateMachine_Book(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}
	odb := &mocks.OutboxDatabase{}

	sdb.On("Reserve", mock.Anything, "prov1", "2026-09-01", "10:00", mock.Anything).Return(nil)
	adb.On("InsertOne", mock.Anything, mock.Anything).Return("id", nil)
	odb.On("InsertOne", mock.Anything, mock.Anything).Return(nil)

	sm := appointments.NewStateMachine(adb, sdb, odb, txnRunnerStub{})
	appointment, err := sm.Book(context.Background(), "req1", "prov1", "2026-09-01", "10:00")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, appointment.Details.Status)
	assert.Equal(t, "req1", appointment.Details.RequesterRef)
	assert.Equal(t, "prov1", appointment.Details.ProviderRef)

	odb.AssertCalled(t, "InsertOne", mock.Anything, mock.MatchedBy(func(e models.DomainEvent) bool {
		return e.Action == models.ActionBook && e.ToStatus == models.StatusPending && e.AppointmentID == appointment.ID
	}))
}

func TestStateMachine_Book_MissingFields(t *testing.T) {
	sm := appointments.NewStateMachine(&mocks.AppointmentDatabase{}, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})

	_, err := sm.Book(context.Background(), "req1", "", "2026-09-01", "10:00")

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestStateMachine_Book_SlotTaken(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}

	sdb.On("Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("slot already reserved: %w", models.ErrConflict))

	sm := appointments.NewStateMachine(adb, sdb, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.Book(context.Background(), "req1", "prov1", "2026-09-01", "10:00")

	assert.ErrorIs(t, err, models.ErrConflict)
	adb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestStateMachine_Book_TxnFailureReleasesSlot(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}

	sdb.On("Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sdb.On("Release", mock.Anything, "prov1", "2026-09-01", "10:00").Return(nil)

	sm := appointments.NewStateMachine(adb, sdb, &mocks.OutboxDatabase{}, txnRunnerStub{err: errors.New("mocked-error")})
	_, err := sm.Book(context.Background(), "req1", "prov1", "2026-09-01", "10:00")

	assert.Error(t, err)
	sdb.AssertCalled(t, "Release", mock.Anything, "prov1", "2026-09-01", "10:00")
}

func TestStateMachine_Transition_Approve(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}
	odb := &mocks.OutboxDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)
	sdb.On("Holder", mock.Anything, "prov1", "2026-09-01", "10:00").Return("appt1", nil)
	adb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	odb.On("InsertOne", mock.Anything, mock.Anything).Return(nil)

	sm := appointments.NewStateMachine(adb, sdb, odb, txnRunnerStub{})
	appointment, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "prov1", Role: models.RoleProvider}, models.ActionApprove)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, appointment.Details.Status)
	odb.AssertCalled(t, "InsertOne", mock.Anything, mock.MatchedBy(func(e models.DomainEvent) bool {
		return e.Action == models.ActionApprove &&
			e.FromStatus == models.StatusPending &&
			e.ToStatus == models.StatusConfirmed
	}))
}

func TestStateMachine_Transition_ApproveSlotStolen(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)
	sdb.On("Holder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("other-appt", nil)

	sm := appointments.NewStateMachine(adb, sdb, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "prov1", Role: models.RoleProvider}, models.ActionApprove)

	assert.ErrorIs(t, err, models.ErrConflict)
	adb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestStateMachine_Transition_UnauthorizedActor(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})

	// the requester may not approve
	_, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester}, models.ActionApprove)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// a different provider may not reject
	_, err = sm.Transition(context.Background(), "appt1", models.Actor{Ref: "prov2", Role: models.RoleProvider}, models.ActionReject)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// an outsider may not cancel
	_, err = sm.Transition(context.Background(), "appt1", models.Actor{Ref: "req2", Role: models.RoleRequester}, models.ActionCancel)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	adb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestStateMachine_Transition_TerminalStatus(t *testing.T) {
	for _, status := range []models.AppointmentStatus{models.StatusRejected, models.StatusCancelled, models.StatusCompleted} {
		adb := &mocks.AppointmentDatabase{}
		appointment := pendingAppointment()
		appointment.Details.Status = status
		adb.On("FindOne", mock.Anything, mock.Anything).Return(appointment, nil)

		sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})
		_, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester}, models.ActionCancel)

		assert.ErrorIs(t, err, models.ErrConflict, "status %q should be terminal", status)
		adb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestStateMachine_Transition_CompletePendingConflicts(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "prov1", Role: models.RoleProvider}, models.ActionComplete)

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestStateMachine_Transition_CancelReleasesSlot(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}
	odb := &mocks.OutboxDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(confirmedAppointment(), nil)
	adb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	sdb.On("Release", mock.Anything, "prov1", "2026-09-01", "10:00").Return(nil)
	odb.On("InsertOne", mock.Anything, mock.Anything).Return(nil)

	sm := appointments.NewStateMachine(adb, sdb, odb, txnRunnerStub{})
	appointment, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester}, models.ActionCancel)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, appointment.Details.Status)
	sdb.AssertCalled(t, "Release", mock.Anything, "prov1", "2026-09-01", "10:00")
}

func TestStateMachine_Transition_LostConcurrentRace(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)
	sdb.On("Holder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("appt1", nil)
	// a concurrent transition already moved the appointment off Pending
	adb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	sm := appointments.NewStateMachine(adb, sdb, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.Transition(context.Background(), "appt1", models.Actor{Ref: "prov1", Role: models.RoleProvider}, models.ActionApprove)

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestStateMachine_Transition_NotFound(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.Transition(context.Background(), "missing", models.Actor{Ref: "prov1", Role: models.RoleProvider}, models.ActionApprove)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStateMachine_MarkPaymentSettled(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	odb := &mocks.OutboxDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(confirmedAppointment(), nil)
	adb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	odb.On("InsertOne", mock.Anything, mock.Anything).Return(nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, odb, txnRunnerStub{})
	appointment, err := sm.MarkPaymentSettled(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester})

	assert.NoError(t, err)
	assert.True(t, appointment.Details.PaymentSettled)
	odb.AssertCalled(t, "InsertOne", mock.Anything, mock.MatchedBy(func(e models.DomainEvent) bool {
		return e.Action == models.ActionPayment
	}))
}

func TestStateMachine_MarkPaymentSettled_Unauthorized(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(confirmedAppointment(), nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.MarkPaymentSettled(context.Background(), "appt1", models.Actor{Ref: "prov1", Role: models.RoleProvider})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestStateMachine_MarkPaymentSettled_PendingConflicts(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})
	_, err := sm.MarkPaymentSettled(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestStateMachine_MarkPaymentSettled_Idempotent(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	odb := &mocks.OutboxDatabase{}
	appointment := confirmedAppointment()
	appointment.Details.PaymentSettled = true
	adb.On("FindOne", mock.Anything, mock.Anything).Return(appointment, nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, odb, txnRunnerStub{})
	result, err := sm.MarkPaymentSettled(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester})

	assert.NoError(t, err)
	assert.True(t, result.Details.PaymentSettled)
	adb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	odb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestStateMachine_HardDelete(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}
	odb := &mocks.OutboxDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(confirmedAppointment(), nil)
	adb.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)
	sdb.On("Holder", mock.Anything, "prov1", "2026-09-01", "10:00").Return("appt1", nil)
	sdb.On("Release", mock.Anything, "prov1", "2026-09-01", "10:00").Return(nil)

	sm := appointments.NewStateMachine(adb, sdb, odb, txnRunnerStub{})
	err := sm.HardDelete(context.Background(), "appt1", models.Actor{Ref: "admin1", Role: models.RoleAdmin})

	assert.NoError(t, err)
	sdb.AssertCalled(t, "Release", mock.Anything, "prov1", "2026-09-01", "10:00")
	// a hard delete never fans out
	odb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestStateMachine_HardDelete_AdminOnly(t *testing.T) {
	sm := appointments.NewStateMachine(&mocks.AppointmentDatabase{}, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})

	err := sm.HardDelete(context.Background(), "appt1", models.Actor{Ref: "prov1", Role: models.RoleProvider})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestStateMachine_HardDelete_KeepsForeignReservation(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	sdb := &mocks.SlotDatabase{}

	adb.On("FindOne", mock.Anything, mock.Anything).Return(confirmedAppointment(), nil)
	adb.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)
	sdb.On("Holder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("other-appt", nil)

	sm := appointments.NewStateMachine(adb, sdb, &mocks.OutboxDatabase{}, txnRunnerStub{})
	err := sm.HardDelete(context.Background(), "appt1", models.Actor{Ref: "admin1", Role: models.RoleAdmin})

	assert.NoError(t, err)
	sdb.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStateMachine_FindByID_GatedToParties(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(pendingAppointment(), nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})

	_, err := sm.FindByID(context.Background(), "appt1", models.Actor{Ref: "req1", Role: models.RoleRequester})
	assert.NoError(t, err)

	_, err = sm.FindByID(context.Background(), "appt1", models.Actor{Ref: "admin1", Role: models.RoleAdmin})
	assert.NoError(t, err)

	_, err = sm.FindByID(context.Background(), "appt1", models.Actor{Ref: "stranger", Role: models.RoleProvider})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestStateMachine_List_FiltersByRole(t *testing.T) {
	adb := &mocks.AppointmentDatabase{}
	adb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.Appointment{}, nil)

	sm := appointments.NewStateMachine(adb, &mocks.SlotDatabase{}, &mocks.OutboxDatabase{}, txnRunnerStub{})

	list, err := sm.List(context.Background(), models.Actor{Ref: "req1", Role: models.RoleRequester})
	assert.NoError(t, err)
	assert.NotNil(t, list)
	assert.Len(t, list, 0)

	_, err = sm.List(context.Background(), models.Actor{Ref: "x", Role: models.Role("ghost")})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
