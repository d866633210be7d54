package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// DomainEvent is an outbox record describing a committed appointment mutation.
// It is appended in the same transaction as the status write and drained
// asynchronously by the notification dispatcher.
type DomainEvent struct {
	ID            string             `json:"_id" bson:"_id"`
	AppointmentID string             `json:"appointmentId" bson:"appointmentId"`
	FromStatus    AppointmentStatus  `json:"fromStatus" bson:"fromStatus"`
	ToStatus      AppointmentStatus  `json:"toStatus" bson:"toStatus"`
	Action        Action             `json:"action" bson:"action"`
	ActorRef      string             `json:"actorRef" bson:"actorRef"`
	ActorRole     Role               `json:"actorRole" bson:"actorRole"`
	Dispatched    bool               `json:"dispatched" bson:"dispatched"`
	Attempts      int                `json:"attempts" bson:"attempts"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
	DispatchedAt  primitive.DateTime `json:"dispatchedAt,omitempty" bson:"dispatchedAt,omitempty"`
}
