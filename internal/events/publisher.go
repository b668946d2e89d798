package events

import (
	"context"
	"fmt"

	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Publisher receives envelopes ready for transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Appender stores envelopes for later delivery.
type Appender interface {
	Append(ctx context.Context, env Envelope) error
}

// BookingPublisher turns stored appointments into appointment.booked events.
// With an outbox configured the event is appended there and delivered
// asynchronously; otherwise it is published directly.
type BookingPublisher struct {
	outbox    Appender
	publisher Publisher
	logger    *logging.Logger
}

func NewBookingPublisher(outbox Appender, publisher Publisher, logger *logging.Logger) *BookingPublisher {
	if outbox == nil && publisher == nil {
		panic("events: outbox or publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingPublisher{outbox: outbox, publisher: publisher, logger: logger}
}

func (p *BookingPublisher) AppointmentBooked(ctx context.Context, appt appointments.Appointment, doc doctors.Doctor) error {
	evt := AppointmentBookedV1{
		AppointmentID:  appt.ID,
		DoctorID:       doc.ID,
		DoctorName:     doc.Name,
		Specialization: string(doc.Specialization),
		PatientName:    appt.PatientName,
		PatientPhone:   appt.PatientPhone,
		PatientAge:     appt.PatientAge,
		Date:           appt.Date,
		Time:           appt.Time,
		Reason:         appt.Reason,
		BookedAt:       appt.CreatedAt,
	}
	env, err := NewEnvelope(evt)
	if err != nil {
		return err
	}
	if p.outbox != nil {
		if err := p.outbox.Append(ctx, env); err != nil {
			return fmt.Errorf("events: queue appointment.booked: %w", err)
		}
		p.logger.Debug("appointment event queued", "event_id", env.EventID, "appointment_id", appt.ID)
		return nil
	}
	if err := p.publisher.Publish(ctx, env); err != nil {
		return fmt.Errorf("events: publish appointment.booked: %w", err)
	}
	p.logger.Info("appointment event published", "event_id", env.EventID, "appointment_id", appt.ID)
	return nil
}
