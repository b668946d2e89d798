package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// BookingNotifier emails the front desk when the assistant books a
// consultation.
type BookingNotifier struct {
	email      EmailSender
	recipients []string
	hospital   string
	logger     *logging.Logger
}

func NewBookingNotifier(email EmailSender, recipients []string, logger *logging.Logger) *BookingNotifier {
	if email == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	var kept []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			kept = append(kept, r)
		}
	}
	return &BookingNotifier{email: email, recipients: kept, hospital: defaultFromName, logger: logger}
}

func (n *BookingNotifier) AppointmentBooked(ctx context.Context, appt appointments.Appointment, doc doctors.Doctor) error {
	if len(n.recipients) == 0 {
		n.logger.Debug("notify: no booking recipients configured")
		return nil
	}
	msg := bookingEmail(appt, doc, n.hospital)
	var failed []string
	for _, to := range n.recipients {
		msg.To = to
		if err := n.email.Send(ctx, msg); err != nil {
			n.logger.Error("notify: booking email failed", "error", err, "to", to, "appointment_id", appt.ID)
			failed = append(failed, to)
			continue
		}
		n.logger.Info("notify: booking email sent", "to", to, "appointment_id", appt.ID)
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: booking email failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func bookingEmail(appt appointments.Appointment, doc doctors.Doctor, hospital string) EmailMessage {
	when := appt.Date + " " + appt.Time
	if d, err := time.Parse(appointments.DateLayout+" 15:04:05", when); err == nil {
		when = d.Format("Monday, January 2 at 3:04 PM")
	}
	reason := appt.Reason
	if reason == "" {
		reason = "Not specified"
	}

	subject := fmt.Sprintf("New appointment #%d - %s with %s", appt.ID, appt.PatientName, doc.Name)
	body := fmt.Sprintf(`A new appointment was booked by the AI assistant.

Appointment ID: %d
Doctor: %s (%s)
When: %s
Patient: %s
Age: %d
Phone: %s
Reason: %s

- %s AI Assistant`, appt.ID, doc.Name, doc.Specialization, when, appt.PatientName, appt.PatientAge, appt.PatientPhone, reason, hospital)

	rows := [][2]string{
		{"Appointment ID", fmt.Sprintf("%d", appt.ID)},
		{"Doctor", fmt.Sprintf("%s (%s)", doc.Name, doc.Specialization)},
		{"When", when},
		{"Patient", appt.PatientName},
		{"Age", fmt.Sprintf("%d", appt.PatientAge)},
		{"Phone", appt.PatientPhone},
		{"Reason", reason},
	}
	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	b.WriteString(`<h2 style="color: #0e7490;">New appointment booked</h2><table style="border-collapse: collapse; margin: 20px 0;">`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`,
			row[0], html.EscapeString(row[1]))
	}
	fmt.Fprintf(&b, `</table><p style="color: #6b7280; font-size: 12px;">- %s AI Assistant</p></div>`, html.EscapeString(hospital))

	return EmailMessage{Subject: subject, Body: body, HTML: b.String()}
}
