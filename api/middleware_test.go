package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/slotline/slotline-api/api"
	"github.com/slotline/slotline-api/databases/mocks"
	"github.com/slotline/slotline-api/models"
)

func accountWithPassword(t *testing.T, password string) *models.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Account{
		ID: "acct1",
		Details: models.AccountDetails{
			Name:     "Avery",
			Email:    "avery@example.com",
			Password: string(hash),
			Role:     models.RoleRequester,
		},
	}
}

func TestValidateAccount(t *testing.T) {
	db := &mocks.AccountDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(accountWithPassword(t, "hunter22"), nil)

	m := api.MiddlewareDB{DB: db}

	info, err := m.ValidateAccount(context.Background(), nil, "avery@example.com", "hunter22")
	assert.NoError(t, err)
	assert.Equal(t, "acct1", info.ID())
	assert.Equal(t, []string{"requester"}, info.Groups())

	_, err = m.ValidateAccount(context.Background(), nil, "avery@example.com", "wrong")
	assert.Error(t, err)
}

func TestValidateAccount_UnknownEmail(t *testing.T) {
	db := &mocks.AccountDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	m := api.MiddlewareDB{DB: db}
	_, err := m.ValidateAccount(context.Background(), nil, "nobody@example.com", "hunter22")

	assert.Error(t, err)
}

func TestCreateTokenAndMiddleware(t *testing.T) {
	db := &mocks.AccountDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(accountWithPassword(t, "hunter22"), nil)

	m := api.MiddlewareDB{DB: db}
	m.SetupGoGuardian()

	// mint a bearer token from basic credentials
	tokenReq := httptest.NewRequest("POST", "/api/v1/auth/token", nil)
	tokenReq.SetBasicAuth("avery@example.com", "hunter22")
	tokenRR := httptest.NewRecorder()
	http.HandlerFunc(m.CreateToken).ServeHTTP(tokenRR, tokenReq)

	require.Equal(t, http.StatusOK, tokenRR.Code)
	var tokenResp map[string]string
	require.NoError(t, json.Unmarshal(tokenRR.Body.Bytes(), &tokenResp))
	require.NotEmpty(t, tokenResp["token"])
	assert.Equal(t, "acct1", tokenResp["_id"])
	assert.Equal(t, "requester", tokenResp["role"])

	// the token authenticates and resolves the actor
	var seen models.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = api.ActorFrom(r.Context())
	})

	authedReq := httptest.NewRequest("GET", "/api/v1/appointments", nil)
	authedReq.Header.Set("Authorization", "Bearer "+tokenResp["token"])
	authedRR := httptest.NewRecorder()
	api.Middleware(next).ServeHTTP(authedRR, authedReq)

	assert.Equal(t, http.StatusOK, authedRR.Code)
	assert.Equal(t, models.Actor{Ref: "acct1", Role: models.RoleRequester}, seen)
}

func TestMiddleware_RejectsMissingToken(t *testing.T) {
	m := api.MiddlewareDB{DB: &mocks.AccountDatabase{}}
	m.SetupGoGuardian()

	req := httptest.NewRequest("GET", "/api/v1/appointments", nil)
	rr := httptest.NewRecorder()
	api.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unauthenticated request reached the handler")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			t.Error("handler context never expired")
		}
	})

	req := httptest.NewRequest("GET", "/api/v1/appointments", nil)
	rr := httptest.NewRecorder()
	api.TimeoutMiddleware(50 * time.Millisecond)(slow).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestTimeout, rr.Code)
}
