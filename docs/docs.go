// Package docs Slotline API.
//
// Documentation of the Slotline appointment and notification API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/slotline/slotline-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/appointment appointments bookEndpointID
// Books a pending appointment against a provider slot.
// responses:
//   201: appointmentResponse

// The booked appointment.
// swagger:response appointmentResponse
type appointmentResponseWrapper struct {
	// in:body
	Body models.Appointment
}

// swagger:route GET /api/v1/notifications notifications listNotificationsEndpointID
// Lists the caller's notifications, newest first, with the unread count.
// responses:
//   200: notificationListResponse

// The caller's notifications.
// swagger:response notificationListResponse
type notificationListResponseWrapper struct {
	// in:body
	Body models.NotificationList
}
