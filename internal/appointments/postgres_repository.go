package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
)

var appointmentsTracer = otel.Tracer("voicebooking.internal.appointments")

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// referenceTables maps each matcher category to the table holding its values.
var referenceTables = map[matcher.Category]string{
	matcher.CategoryName:       "names",
	matcher.CategoryDepartment: "departments",
	matcher.CategoryCity:       "cities",
	matcher.CategoryHospital:   "hospitals",
}

// PostgresRepository stores appointments and serves reference sets from Postgres.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

// SaveAppointment inserts one appointment row.
func (r *PostgresRepository) SaveAppointment(ctx context.Context, appt Appointment) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("voicebooking.appointment_id", appt.ID.String()),
		attribute.String("voicebooking.session_id", appt.SessionID),
		attribute.String("voicebooking.transport", appt.Transport),
	)

	if err := appt.Validate(); err != nil {
		span.RecordError(err)
		return err
	}
	answers, err := json.Marshal(appt.Answers)
	if err != nil {
		return fmt.Errorf("appointments: marshal answers: %w", err)
	}
	query := `
		INSERT INTO appointments (
			id, session_id, transport, caller_phone, name, city, hospital_name,
			department, appointment_date, appointment_time, answers, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if _, err := r.db.Exec(ctx, query,
		appt.ID,
		appt.SessionID,
		appt.Transport,
		appt.CallerPhone,
		appt.Name,
		appt.City,
		appt.HospitalName,
		appt.Department,
		appt.Date,
		appt.Time,
		answers,
		appt.CreatedAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

// GetAppointment loads an appointment by id.
func (r *PostgresRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, session_id, transport, caller_phone, name, city, hospital_name,
			department, appointment_date, appointment_time, answers, created_at
		FROM appointments
		WHERE id = $1
	`
	var (
		appt      Appointment
		answers   []byte
		createdAt time.Time
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&appt.ID,
		&appt.SessionID,
		&appt.Transport,
		&appt.CallerPhone,
		&appt.Name,
		&appt.City,
		&appt.HospitalName,
		&appt.Department,
		&appt.Date,
		&appt.Time,
		&answers,
		&createdAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &appt.Answers); err != nil {
			return nil, fmt.Errorf("appointments: decode answers: %w", err)
		}
	}
	appt.CreatedAt = createdAt
	return &appt, nil
}

// LoadReferenceSets implements matcher.ReferenceSource.
func (r *PostgresRepository) LoadReferenceSets(ctx context.Context) (matcher.ReferenceSets, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.load_reference_sets")
	defer span.End()

	var refs matcher.ReferenceSets
	for _, category := range matcher.Categories {
		values, err := r.listNames(ctx, referenceTables[category])
		if err != nil {
			span.RecordError(err)
			return matcher.ReferenceSets{}, err
		}
		switch category {
		case matcher.CategoryName:
			refs.Names = values
		case matcher.CategoryDepartment:
			refs.Departments = values
		case matcher.CategoryCity:
			refs.Cities = values
		case matcher.CategoryHospital:
			refs.Hospitals = values
		}
	}
	return refs, nil
}

// table is always one of referenceTables, never caller input.
func (r *PostgresRepository) listNames(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT name FROM "+table+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("appointments: list %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("appointments: scan %s: %w", table, err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate %s: %w", table, err)
	}
	return out, nil
}
