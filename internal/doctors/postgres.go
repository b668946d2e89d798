package doctors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used by the repository.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const doctorColumns = `id, name, specialization, available, consultation_fee, schedule, COALESCE(phone, ''), COALESCE(email, '')`

// PostgresDirectory reads doctors from the doctors table.
type PostgresDirectory struct {
	pool PgxPool
}

func NewPostgresDirectory(pool PgxPool) *PostgresDirectory {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresDirectory{pool: pool}
}

func (r *PostgresDirectory) FindByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	doc, err := scanDoctor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: find by id: %w", err)
	}
	return doc, nil
}

// FindByName loads the roster and applies the same fuzzy rule as the memory
// directory so both backends resolve names identically.
func (r *PostgresDirectory) FindByName(ctx context.Context, name string) (*Doctor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNotFound
	}
	list, err := r.list(ctx, `SELECT `+doctorColumns+` FROM doctors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("doctors: find by name: %w", err)
	}
	for i := range list {
		if NameMatches(list[i].Name, name) {
			return &list[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *PostgresDirectory) FindBySpecialization(ctx context.Context, spec Specialization) ([]Doctor, error) {
	list, err := r.list(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE specialization = $1 AND available ORDER BY name`, string(spec))
	if err != nil {
		return nil, fmt.Errorf("doctors: find by specialization: %w", err)
	}
	return list, nil
}

func (r *PostgresDirectory) ListAvailable(ctx context.Context) ([]Doctor, error) {
	list, err := r.list(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE available ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("doctors: list available: %w", err)
	}
	return list, nil
}

// Upsert inserts or updates a doctor by id.
func (r *PostgresDirectory) Upsert(ctx context.Context, doc Doctor) error {
	schedule, err := json.Marshal(doc.Schedule)
	if err != nil {
		return fmt.Errorf("doctors: encode schedule: %w", err)
	}
	query := `
		INSERT INTO doctors (id, name, specialization, available, consultation_fee, schedule, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			specialization = EXCLUDED.specialization,
			available = EXCLUDED.available,
			consultation_fee = EXCLUDED.consultation_fee,
			schedule = EXCLUDED.schedule,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, doc.ID, doc.Name, string(doc.Specialization), doc.Available, doc.ConsultationFee, schedule, doc.Phone, doc.Email); err != nil {
		return fmt.Errorf("doctors: upsert: %w", err)
	}
	return nil
}

func (r *PostgresDirectory) list(ctx context.Context, query string, args ...any) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		doc, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		doc      Doctor
		spec     string
		schedule []byte
	)
	if err := row.Scan(&doc.ID, &doc.Name, &spec, &doc.Available, &doc.ConsultationFee, &schedule, &doc.Phone, &doc.Email); err != nil {
		return nil, err
	}
	doc.Specialization = Specialization(spec)
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &doc.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
	}
	return &doc, nil
}
