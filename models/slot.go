package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SlotReservation marks a (providerRef, slotDate, slotTime) unit of booking
// capacity as held by exactly one appointment. The document id is the slot key
// itself, so mongo's unique _id constraint is the mutual-exclusion primitive.
type SlotReservation struct {
	ID            string             `json:"_id" bson:"_id"`
	ProviderRef   string             `json:"providerRef" bson:"providerRef"`
	SlotDate      string             `json:"slotDate" bson:"slotDate"`
	SlotTime      string             `json:"slotTime" bson:"slotTime"`
	AppointmentID string             `json:"appointmentId" bson:"appointmentId"`
	ReservedAt    primitive.DateTime `json:"reservedAt" bson:"reservedAt"`
}
