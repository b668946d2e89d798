package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used by the repository.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

const appointmentColumns = `id, patient_name, patient_phone, patient_age, doctor_id, to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI:SS'), status, COALESCE(reason, ''), COALESCE(notes, ''), created_at`

// PostgresStore persists appointments in the appointments table.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	if appt.Status == "" {
		appt.Status = StatusScheduled
	}
	query := `
		INSERT INTO appointments (patient_name, patient_phone, patient_age, doctor_id, appointment_date, appointment_time, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7, NULLIF($8, ''), NULLIF($9, ''))
		RETURNING id, created_at
	`
	err := s.pool.QueryRow(ctx, query,
		appt.PatientName, appt.PatientPhone, appt.PatientAge, appt.DoctorID,
		appt.Date, appt.Time, string(appt.Status), appt.Reason, appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return &appt, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) ExistsAt(ctx context.Context, doctorID int64, date time.Time, clock string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2::date AND appointment_time = $3::time AND status = $4
		)
	`
	if err := s.pool.QueryRow(ctx, query, doctorID, DateKey(date), clock, string(StatusScheduled)).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: exists at: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) BookedTimes(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	query := `
		SELECT to_char(appointment_time, 'HH24:MI:SS') FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2::date AND status = $3
		ORDER BY appointment_time
	`
	rows, err := s.pool.Query(ctx, query, doctorID, DateKey(date), string(StatusScheduled))
	if err != nil {
		return nil, fmt.Errorf("appointments: booked times: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var clock string
		if err := rows.Scan(&clock); err != nil {
			return nil, fmt.Errorf("appointments: scan booked time: %w", err)
		}
		out = append(out, clock)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByDoctor(ctx context.Context, doctorID int64, date time.Time) ([]Appointment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if date.IsZero() {
		rows, err = s.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id = $1 ORDER BY appointment_date, appointment_time`, doctorID)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id = $1 AND appointment_date = $2::date ORDER BY appointment_time`, doctorID, DateKey(date))
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: list by doctor: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	tag, err := s.pool.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(&appt.ID, &appt.PatientName, &appt.PatientPhone, &appt.PatientAge, &appt.DoctorID,
		&appt.Date, &appt.Time, &status, &appt.Reason, &appt.Notes, &appt.CreatedAt); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	return &appt, nil
}
