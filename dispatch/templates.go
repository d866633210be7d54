package dispatch

import (
	"strings"
	"text/template"

	"github.com/slotline/slotline-api/models"
)

// templateContext carries the event details every content template renders from
type templateContext struct {
	RequesterName string
	ProviderName  string
	SenderName    string
	SlotDate      string
	SlotTime      string
}

// contentTemplates is the single source of notification wording, keyed by the
// closed type tag set. Content is never assembled ad hoc at a call site.
var contentTemplates = map[models.NotificationType]*template.Template{
	models.NotificationAppointmentBook:     mustParse("appointment_book", "{{.RequesterName}} requested an appointment on {{.SlotDate}} at {{.SlotTime}}"),
	models.NotificationAppointmentApprove:  mustParse("appointment_approve", "{{.ProviderName}} approved the appointment on {{.SlotDate}} at {{.SlotTime}}"),
	models.NotificationAppointmentReject:   mustParse("appointment_reject", "{{.ProviderName}} declined the appointment on {{.SlotDate}} at {{.SlotTime}}"),
	models.NotificationAppointmentCancel:   mustParse("appointment_cancel", "The appointment on {{.SlotDate}} at {{.SlotTime}} was cancelled"),
	models.NotificationAppointmentComplete: mustParse("appointment_complete", "{{.ProviderName}} marked the appointment on {{.SlotDate}} at {{.SlotTime}} as completed"),
	models.NotificationPayment:             mustParse("payment", "Payment settled for the appointment on {{.SlotDate}} at {{.SlotTime}}"),
	models.NotificationMessage:             mustParse("message", "New message from {{.SenderName}}"),
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

func renderContent(notificationType models.NotificationType, tc templateContext) (string, error) {
	tmpl, ok := contentTemplates[notificationType]
	if !ok {
		return "", models.ErrValidation
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, tc); err != nil {
		return "", err
	}
	return sb.String(), nil
}
