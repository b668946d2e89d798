package hospital

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const bedColumns = `id, bed_number, ward, bed_type, available, COALESCE(patient_name, ''), COALESCE(patient_id, ''), admission_date, floor, price_per_day::float8`

// PostgresStore reads and updates the beds table.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("hospital: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Bed, error) {
	var (
		where []string
		args  []any
	)
	if filter.Available != nil {
		args = append(args, *filter.Available)
		where = append(where, fmt.Sprintf("available = $%d", len(args)))
	}
	if filter.Ward != "" {
		args = append(args, string(filter.Ward))
		where = append(where, fmt.Sprintf("ward = $%d", len(args)))
	}
	query := `SELECT ` + bedColumns + ` FROM beds`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY bed_number`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hospital: list beds: %w", err)
	}
	defer rows.Close()

	var out []Bed
	for rows.Next() {
		bed, err := scanBed(rows)
		if err != nil {
			return nil, fmt.Errorf("hospital: scan bed: %w", err)
		}
		out = append(out, *bed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hospital: list beds: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Bed, error) {
	bed, err := scanBed(s.pool.QueryRow(ctx, `SELECT `+bedColumns+` FROM beds WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hospital: get bed: %w", err)
	}
	return bed, nil
}

// Update writes occupancy and pricing fields of an existing bed.
func (s *PostgresStore) Update(ctx context.Context, bed Bed) error {
	if !bed.Ward.Valid() {
		return ErrInvalidWard
	}
	query := `
		UPDATE beds SET
			ward = $2,
			bed_type = $3,
			available = $4,
			patient_name = NULLIF($5, ''),
			patient_id = NULLIF($6, ''),
			admission_date = $7,
			floor = $8,
			price_per_day = $9,
			updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, bed.ID, string(bed.Ward), string(bed.Type), bed.Available,
		bed.PatientName, bed.PatientID, bed.AdmissionDate, bed.Floor, bed.PricePerDay)
	if err != nil {
		return fmt.Errorf("hospital: update bed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AvailableCount(ctx context.Context, ward Ward) (int, error) {
	query := `SELECT COUNT(*) FROM beds WHERE available`
	var args []any
	if ward != "" {
		query += ` AND ward = $1`
		args = append(args, string(ward))
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("hospital: count available beds: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE ward = 'ICU'),
			COUNT(*) FILTER (WHERE ward = 'General'),
			COUNT(*) FILTER (WHERE ward = 'Emergency'),
			COUNT(*)
		FROM beds
		WHERE available
	`
	var st Stats
	if err := s.pool.QueryRow(ctx, query).Scan(&st.ICU, &st.General, &st.Emergency, &st.Total); err != nil {
		return Stats{}, fmt.Errorf("hospital: bed stats: %w", err)
	}
	return st, nil
}

func scanBed(row pgx.Row) (*Bed, error) {
	var (
		bed       Bed
		ward      string
		bedType   string
		admission *time.Time
	)
	if err := row.Scan(&bed.ID, &bed.Number, &ward, &bedType, &bed.Available, &bed.PatientName,
		&bed.PatientID, &admission, &bed.Floor, &bed.PricePerDay); err != nil {
		return nil, err
	}
	bed.Ward = Ward(ward)
	bed.Type = BedType(bedType)
	bed.AdmissionDate = admission
	return &bed, nil
}
