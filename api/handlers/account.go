package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/slotline/slotline-api/config"
	"github.com/slotline/slotline-api/databases"
	"github.com/slotline/slotline-api/models"
)

// Account exported for testing purposes
type Account struct {
	DB databases.AccountDatabase
}

type registerRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// RegisterHandler creates a new account with a bcrypt-hashed password
func (h Account) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody registerRequest
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if requestBody.Email == "" || requestBody.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, models.ErrValidation)
		return
	}
	if !requestBody.Role.Valid() {
		config.ErrorStatus("invalid role", http.StatusBadRequest, w, models.ErrValidation)
		return
	}

	existing, err := h.DB.FindOne(r.Context(), bson.M{"account.email": requestBody.Email})
	if err != nil && err != mongo.ErrNoDocuments {
		config.ErrorStatus("failed to check for existing account", http.StatusInternalServerError, w, err)
		return
	}
	if existing != nil {
		config.ErrorStatus("email already registered", http.StatusConflict, w, models.ErrConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(requestBody.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	account := models.Account{
		ID: primitive.NewObjectID().Hex(),
		Details: models.AccountDetails{
			Name:      requestBody.Name,
			Email:     requestBody.Email,
			Password:  string(hash),
			Role:      requestBody.Role,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if _, err := h.DB.InsertOne(r.Context(), account); err != nil {
		config.ErrorStatus("failed to create account", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}
