package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ChatMessage holds the structure for the chat message collection in mongo.
// Room membership is derived from the participant pair, never stored.
type ChatMessage struct {
	ID            string             `json:"_id" bson:"_id"`
	SenderRef     string             `json:"senderRef" bson:"senderRef"`
	SenderRole    Role               `json:"senderRole" bson:"senderRole"`
	RecipientRef  string             `json:"recipientRef" bson:"recipientRef"`
	RecipientRole Role               `json:"recipientRole" bson:"recipientRole"`
	Content       string             `json:"content" bson:"content"`
	Read          bool               `json:"read" bson:"read"`
	Timestamp     primitive.DateTime `json:"timestamp" bson:"timestamp"`
}
