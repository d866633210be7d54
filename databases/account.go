package databases

// go generate: mockery --name AccountDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slotline/slotline-api/models"
)

const accountName = "accounts"

// AccountDatabase contains the methods to use with the account database
type AccountDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Account, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Account, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (interface{}, error)
}

type accountDatabase struct {
	db DatabaseHelper
}

// NewAccountDatabase initializes a new instance of account database with the provided db connection
func NewAccountDatabase(db DatabaseHelper) AccountDatabase {
	return &accountDatabase{
		db: db,
	}
}

func (a *accountDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Account, error) {
	account := &models.Account{}
	err := a.db.Collection(accountName).FindOne(ctx, filter, opts...).Decode(&account)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (a *accountDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Account, error) {
	var accounts []models.Account
	cr, err := a.db.Collection(accountName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (a *accountDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (interface{}, error) {
	return a.db.Collection(accountName).InsertOne(ctx, document, opts...)
}
