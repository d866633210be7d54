package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Maintenance utility to create the indexes the api depends on:
//   - notifications.dedupKey unique, so duplicate fan-out loses the insert race
//   - outbox (dispatched, createdAt), so the drain scan stays cheap
//
// Usage: DB_URI=... DB_NAME=... go run scripts/ensure_indexes.go
func main() {
	uri := os.Getenv("DB_URI")
	name := os.Getenv("DB_NAME")
	if uri == "" || name == "" {
		fmt.Println("Usage: DB_URI=... DB_NAME=... go run scripts/ensure_indexes.go")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		fmt.Printf("Error connecting: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	db := client.Database(name)

	unique := true
	_, err = db.Collection("notifications").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "dedupKey", Value: 1}},
		Options: &options.IndexOptions{Unique: &unique},
	})
	if err != nil {
		fmt.Printf("Error creating notifications.dedupKey index: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Created unique index on notifications.dedupKey")

	_, err = db.Collection("outbox").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "dispatched", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		fmt.Printf("Error creating outbox index: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Created index on outbox (dispatched, createdAt)")
}
