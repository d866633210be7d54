package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NotificationType is the closed tag set notifications are rendered from
type NotificationType string

// All notification types. Content is always rendered from a template keyed by
// one of these tags, never assembled ad hoc at a call site.
const (
	NotificationAppointmentBook     NotificationType = "appointment_book"
	NotificationAppointmentApprove  NotificationType = "appointment_approve"
	NotificationAppointmentReject   NotificationType = "appointment_reject"
	NotificationAppointmentCancel   NotificationType = "appointment_cancel"
	NotificationAppointmentComplete NotificationType = "appointment_complete"
	NotificationPayment             NotificationType = "payment"
	NotificationMessage             NotificationType = "message"
)

// Notification holds the structure for the notification collection in mongo.
// A record is owned exclusively by (recipientRef, recipientRole); only that
// identity may mutate its read-state or delete it.
type Notification struct {
	ID            string             `json:"_id" bson:"_id"`
	RecipientRef  string             `json:"recipientRef" bson:"recipientRef"`
	RecipientRole Role               `json:"recipientRole" bson:"recipientRole"`
	SenderRef     string             `json:"senderRef,omitempty" bson:"senderRef,omitempty"`
	SenderRole    Role               `json:"senderRole,omitempty" bson:"senderRole,omitempty"`
	Type          NotificationType   `json:"type" bson:"type"`
	Content       string             `json:"content" bson:"content"`
	Read          bool               `json:"read" bson:"read"`
	Link          string             `json:"link,omitempty" bson:"link,omitempty"`
	DedupKey      string             `json:"-" bson:"dedupKey"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// NotificationList is the list response shape with its derived unread count
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}
