package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/api"
	"github.com/slotline/slotline-api/appointments"
	"github.com/slotline/slotline-api/config"
	"github.com/slotline/slotline-api/models"
)

// Kicker requests an outbox drain pass without blocking the request
type Kicker interface {
	Kick()
}

// Appointment exported for testing purposes
type Appointment struct {
	SM      *appointments.StateMachine
	Drainer Kicker
}

type bookRequest struct {
	ProviderRef string `json:"providerRef"`
	SlotDate    string `json:"slotDate"`
	SlotTime    string `json:"slotTime"`
}

// BookHandler creates a Pending appointment for the calling requester
func (h Appointment) BookHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}
	if actor.Role != models.RoleRequester {
		config.ErrorStatus("only requesters may book", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	var requestBody bookRequest
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	appointment, err := h.SM.Book(r.Context(), actor.Ref, requestBody.ProviderRef, requestBody.SlotDate, requestBody.SlotTime)
	if err != nil {
		config.ErrorStatus("failed to book appointment", errorCode(err), w, err)
		return
	}
	h.kick()

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(appointment)
}

// TransitionHandler applies a lifecycle action (approve, reject, cancel,
// complete) to an appointment on behalf of the calling actor
func (h Appointment) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]
	action := models.Action(mux.Vars(r)["action"])
	zap.S().Debugf("appointment_id: %v action: %v", appointmentID, action)

	appointment, err := h.SM.Transition(r.Context(), appointmentID, actor, action)
	if err != nil {
		config.ErrorStatus(fmt.Sprintf("failed to %s appointment", action), errorCode(err), w, err)
		return
	}
	h.kick()

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(appointment)
}

// PaymentSettledHandler flags an appointment's payment as settled
func (h Appointment) PaymentSettledHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]
	appointment, err := h.SM.MarkPaymentSettled(r.Context(), appointmentID, actor)
	if err != nil {
		config.ErrorStatus("failed to settle payment", errorCode(err), w, err)
		return
	}
	h.kick()

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(appointment)
}

// ByIDHandler returns an appointment by ID
func (h Appointment) ByIDHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]
	appointment, err := h.SM.FindByID(r.Context(), appointmentID, actor)
	if err != nil {
		config.ErrorStatus("failed to get appointment by ID", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(appointment)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ListHandler returns the caller's appointments, newest first
func (h Appointment) ListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	appointments, err := h.SM.List(r.Context(), actor)
	if err != nil {
		config.ErrorStatus("failed to get appointments", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(appointments)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// HardDeleteHandler removes an appointment entirely. Admin only; no
// notifications fan out from this path.
func (h Appointment) HardDeleteHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	appointmentID := mux.Vars(r)["appointment_id"]
	if err := h.SM.HardDelete(r.Context(), appointmentID, actor); err != nil {
		config.ErrorStatus("failed to delete appointment", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Appointment deleted successfully",
	})
}

func (h Appointment) kick() {
	if h.Drainer != nil {
		h.Drainer.Kick()
	}
}
