package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/api"
	"github.com/slotline/slotline-api/appointments"
	"github.com/slotline/slotline-api/chat"
	"github.com/slotline/slotline-api/config"
	"github.com/slotline/slotline-api/databases"
	"github.com/slotline/slotline-api/dispatch"
	"github.com/slotline/slotline-api/models"
	"github.com/slotline/slotline-api/realtime"
)

// App stores the router, db connection and core components, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	dbHelper databases.DatabaseHelper
	client   databases.ClientHelper
	registry *realtime.Registry
	drainer  *dispatch.Drainer
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewAccountDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	a.registry = realtime.NewRegistry()
	router := realtime.NewRouter(a.registry)

	adb := databases.NewAppointmentDatabase(a.dbHelper)
	sdb := databases.NewSlotDatabase(a.dbHelper)
	odb := databases.NewOutboxDatabase(a.dbHelper)
	ndb := databases.NewNotificationDatabase(a.dbHelper)
	cdb := databases.NewChatMessageDatabase(a.dbHelper)
	accdb := databases.NewAccountDatabase(a.dbHelper)

	dispatcher := dispatch.NewDispatcher(ndb, adb, accdb, odb, router)
	a.drainer = dispatch.NewDrainer(dispatcher)

	appt := Appointment{SM: appointments.NewStateMachine(adb, sdb, odb, a.client), Drainer: a.drainer}
	notif := Notification{Dispatcher: dispatcher}
	ch := Chat{Relay: chat.NewRelay(cdb, router, dispatcher)}
	account := Account{DB: accdb}
	socket := Socket{Registry: a.registry, Secret: a.Config.JWTSecret}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// realtime channel; authenticated by short-lived ws token
	r.HandleFunc("/ws", socket.ServeWS)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/register", http.HandlerFunc(account.RegisterHandler)).Methods("POST")
	apiCreate.Handle("/auth/ws-token", api.Middleware(http.HandlerFunc(socket.CreateWSTokenHandler))).Methods("POST")

	apiCreate.Handle("/appointment", api.Middleware(http.HandlerFunc(appt.BookHandler))).Methods("POST")
	apiCreate.Handle("/appointments", api.Middleware(http.HandlerFunc(appt.ListHandler))).Methods("GET")
	apiCreate.Handle("/appointment/{appointment_id}", api.Middleware(http.HandlerFunc(appt.ByIDHandler))).Methods("GET")
	apiCreate.Handle("/appointment/{appointment_id}", api.Middleware(http.HandlerFunc(appt.HardDeleteHandler))).Methods("DELETE")
	apiCreate.Handle("/appointment/{appointment_id}/payment-settled", api.Middleware(http.HandlerFunc(appt.PaymentSettledHandler))).Methods("PUT")
	apiCreate.Handle("/appointment/{appointment_id}/{action:approve|reject|cancel|complete}", api.Middleware(http.HandlerFunc(appt.TransitionHandler))).Methods("PUT")

	apiCreate.Handle("/notifications", api.Middleware(http.HandlerFunc(notif.ListHandler))).Methods("GET")
	apiCreate.Handle("/notifications/read-all", api.Middleware(http.HandlerFunc(notif.MarkAllReadHandler))).Methods("PUT")
	apiCreate.Handle("/notifications/purge", api.Middleware(http.HandlerFunc(notif.PurgeHandler))).Methods("DELETE")
	apiCreate.Handle("/notification/{notification_id}/read", api.Middleware(http.HandlerFunc(notif.MarkReadHandler))).Methods("PUT")
	apiCreate.Handle("/notification/{notification_id}", api.Middleware(http.HandlerFunc(notif.DeleteHandler))).Methods("DELETE")

	apiCreate.Handle("/chat/messages", api.Middleware(http.HandlerFunc(ch.SendHandler))).Methods("POST")
	apiCreate.Handle("/chat/messages/{counterpart_ref}", api.Middleware(http.HandlerFunc(ch.ListMessagesHandler))).Methods("GET")
	apiCreate.Handle("/chat/conversations/{counterpart_ref}/read", api.Middleware(http.HandlerFunc(ch.OpenConversationHandler))).Methods("PUT")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	a.client = client

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("slotline-api has connected to the database")

	// initialize api router
	a.Router = a.New()

	// start the outbox drainer once routes are live
	a.drainer.Start()
	return nil
}

// Shutdown stops background work
func (a *App) Shutdown() {
	if a.drainer != nil {
		a.drainer.Stop()
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// errorCode maps the core error taxonomy onto HTTP statuses
func errorCode(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
