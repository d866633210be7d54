package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Account holds the structure for the account collection in mongo. Accounts
// back the auth boundary only; credential issuance lives outside this service.
type Account struct {
	ID      string         `json:"_id" bson:"_id"`
	Details AccountDetails `json:"account" bson:"account"`
	Version int32          `json:"__v" bson:"__v"`
}

// AccountDetails holds the inner account structure as stored in the account
// collection in mongo
type AccountDetails struct {
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Role      Role               `json:"role" bson:"role"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
