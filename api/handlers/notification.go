package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/slotline/slotline-api/api"
	"github.com/slotline/slotline-api/config"
	"github.com/slotline/slotline-api/dispatch"
	"github.com/slotline/slotline-api/models"
)

// Notification exported for testing purposes
type Notification struct {
	Dispatcher *dispatch.Dispatcher
}

// ListHandler returns all notifications for the caller, newest first, with
// the derived unread count
func (h Notification) ListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	list, err := h.Dispatcher.List(r.Context(), actor)
	if err != nil {
		config.ErrorStatus("failed to get notifications", errorCode(err), w, err)
		return
	}

	b, err := json.Marshal(list)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkReadHandler marks a notification as read
func (h Notification) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	notificationID := mux.Vars(r)["notification_id"]
	if err := h.Dispatcher.MarkRead(r.Context(), notificationID, actor); err != nil {
		config.ErrorStatus("failed to mark notification as read", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Notification marked as read",
	})
}

// MarkAllReadHandler marks every unread notification of the caller as read
func (h Notification) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	if err := h.Dispatcher.MarkAllRead(r.Context(), actor); err != nil {
		config.ErrorStatus("failed to mark notifications as read", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "All notifications marked as read",
	})
}

// DeleteHandler deletes a notification owned by the caller
func (h Notification) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	notificationID := mux.Vars(r)["notification_id"]
	if err := h.Dispatcher.Delete(r.Context(), notificationID, actor); err != nil {
		config.ErrorStatus("failed to delete notification", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Notification deleted successfully",
	})
}

// PurgeHandler bulk-deletes read notifications. Admin only.
func (h Notification) PurgeHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	purged, err := h.Dispatcher.Purge(r.Context(), actor)
	if err != nil {
		config.ErrorStatus("failed to purge notifications", errorCode(err), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Notifications purged",
		"purged":  purged,
	})
}
