package databases

// go generate: mockery --name OutboxDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slotline/slotline-api/models"
)

const outboxName = "outbox"

// OutboxDatabase contains the methods to use with the domain event outbox
type OutboxDatabase interface {
	InsertOne(ctx context.Context, event models.DomainEvent) error
	FindPending(ctx context.Context, limit int64) ([]models.DomainEvent, error)
	MarkDispatched(ctx context.Context, eventID string) error
	IncrementAttempts(ctx context.Context, eventID string) error
}

type outboxDatabase struct {
	db DatabaseHelper
}

// NewOutboxDatabase initializes a new instance of outbox database with the provided db connection
func NewOutboxDatabase(db DatabaseHelper) OutboxDatabase {
	return &outboxDatabase{
		db: db,
	}
}

func (o *outboxDatabase) InsertOne(ctx context.Context, event models.DomainEvent) error {
	_, err := o.db.Collection(outboxName).InsertOne(ctx, event)
	return err
}

func (o *outboxDatabase) FindPending(ctx context.Context, limit int64) ([]models.DomainEvent, error) {
	var events []models.DomainEvent
	opts := &options.FindOptions{
		Limit: &limit,
		Sort:  bson.D{{Key: "createdAt", Value: 1}},
	}
	cr, err := o.db.Collection(outboxName).Find(ctx, bson.M{"dispatched": false}, opts)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (o *outboxDatabase) MarkDispatched(ctx context.Context, eventID string) error {
	update := bson.M{"$set": bson.M{
		"dispatched":   true,
		"dispatchedAt": primitive.NewDateTimeFromTime(time.Now()),
	}}
	_, err := o.db.Collection(outboxName).UpdateOne(ctx, bson.M{"_id": eventID}, update)
	return err
}

func (o *outboxDatabase) IncrementAttempts(ctx context.Context, eventID string) error {
	_, err := o.db.Collection(outboxName).UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{"$inc": bson.M{"attempts": 1}})
	return err
}
