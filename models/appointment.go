package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// AppointmentStatus is the canonical status enumeration for an appointment
type AppointmentStatus string

// Appointment lifecycle statuses. Rejected, Cancelled and Completed are terminal.
const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Action is a lifecycle action applied to an appointment
type Action string

// All actions that flow through the appointment state machine
const (
	ActionBook     Action = "book"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionPayment  Action = "payment"
)

// Valid reports whether a is a known lifecycle action
func (a Action) Valid() bool {
	switch a {
	case ActionBook, ActionApprove, ActionReject, ActionCancel, ActionComplete, ActionPayment:
		return true
	}
	return false
}

// Appointment holds the structure for the appointment collection in mongo
type Appointment struct {
	ID      string             `json:"_id" bson:"_id"`
	Details AppointmentDetails `json:"appointment" bson:"appointment"`
	Version int32              `json:"__v" bson:"__v"`
}

// AppointmentDetails holds the inner appointment structure as stored in the
// appointment collection in mongo
type AppointmentDetails struct {
	RequesterRef   string             `json:"requesterRef" bson:"requesterRef"`
	ProviderRef    string             `json:"providerRef" bson:"providerRef"`
	SlotDate       string             `json:"slotDate" bson:"slotDate"`
	SlotTime       string             `json:"slotTime" bson:"slotTime"`
	Status         AppointmentStatus  `json:"status" bson:"status"`
	PaymentSettled bool               `json:"paymentSettled" bson:"paymentSettled"`
	CreatedAt      primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
