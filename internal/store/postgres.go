package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/scheduling"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres is the authoritative appointment store. Overlaps for one
// professional are refused by the appointments_no_overlap exclusion
// constraint; writes that move an interval first take a per-professional
// advisory lock so concurrent writers queue instead of racing to the
// constraint.
type Postgres struct {
	db  DB
	now func() time.Time
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

const appointmentColumns = `id, business_id, client_id, client_name, professional_id, service_id, service_name,
	starts_at, duration_minutes, price_cents, payment_method, notes, status,
	send_confirmation, send_reminder, created_at, updated_at`

func scanAppointment(row pgx.Row) (scheduling.Appointment, error) {
	var a scheduling.Appointment
	var payment, status string
	err := row.Scan(&a.ID, &a.BusinessID, &a.ClientID, &a.ClientName, &a.ProfessionalID, &a.ServiceID, &a.ServiceName,
		&a.Date, &a.Duration, &a.PriceCents, &payment, &a.Notes, &status,
		&a.SendConfirmation, &a.SendReminder, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return scheduling.Appointment{}, err
	}
	a.PaymentMethod = scheduling.PaymentMethod(payment)
	a.Status = scheduling.Status(status)
	return a, nil
}

func (p *Postgres) List(ctx context.Context, businessID string) ([]scheduling.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments WHERE business_id=$1 ORDER BY starts_at`
	rows, err := p.db.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scheduling.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) Create(ctx context.Context, appt scheduling.Appointment) (scheduling.Appointment, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := p.now().UTC()
	appt.Date = appt.Date.UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return scheduling.Appointment{}, err
	}
	defer tx.Rollback(ctx)

	if err := lockProfessional(ctx, tx, appt.ProfessionalID); err != nil {
		return scheduling.Appointment{}, err
	}

	q := `INSERT INTO appointments
          (id, business_id, client_id, client_name, professional_id, service_id, service_name,
           starts_at, ends_at, duration_minutes, price_cents, payment_method, notes, status,
           send_confirmation, send_reminder, created_at, updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err = tx.Exec(ctx, q,
		appt.ID, appt.BusinessID, appt.ClientID, appt.ClientName, appt.ProfessionalID, appt.ServiceID, appt.ServiceName,
		appt.Date, appt.End(), appt.Duration, appt.PriceCents, string(appt.PaymentMethod), appt.Notes, string(appt.Status),
		appt.SendConfirmation, appt.SendReminder, now, now)
	if err != nil {
		return scheduling.Appointment{}, mapWriteError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return scheduling.Appointment{}, mapWriteError(err)
	}
	return appt, nil
}

func (p *Postgres) Update(ctx context.Context, id string, patch scheduling.Patch) (scheduling.Appointment, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return scheduling.Appointment{}, err
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduling.Appointment{}, booking.ErrNotFound
	}
	if err != nil {
		return scheduling.Appointment{}, err
	}

	next := patch.Apply(current)
	next.Date = next.Date.UTC()
	next.UpdatedAt = p.now().UTC()
	if next.Status != scheduling.StatusCanceled && (!next.Date.Equal(current.Date) || next.Duration != current.Duration || current.Status == scheduling.StatusCanceled) {
		if err := lockProfessional(ctx, tx, next.ProfessionalID); err != nil {
			return scheduling.Appointment{}, err
		}
	}

	q := `UPDATE appointments
          SET starts_at=$1, ends_at=$2, duration_minutes=$3, status=$4, notes=$5, updated_at=$6
          WHERE id=$7`
	if _, err := tx.Exec(ctx, q, next.Date, next.End(), next.Duration, string(next.Status), next.Notes, next.UpdatedAt, id); err != nil {
		return scheduling.Appointment{}, mapWriteError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return scheduling.Appointment{}, mapWriteError(err)
	}
	return next, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func lockProfessional(ctx context.Context, tx pgx.Tx, professionalID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, professionalID); err != nil {
		return fmt.Errorf("lock professional %s: %w", professionalID, err)
	}
	return nil
}

// IsConflict reports whether err is an exclusion constraint violation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func mapWriteError(err error) error {
	if IsConflict(err) {
		return booking.ErrSlotTaken
	}
	return err
}
