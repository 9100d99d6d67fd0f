// Package storage holds the Postgres-backed implementations of the ledger
// and company interfaces.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/ledger"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
	"github.com/YehoanatnEzra/Callflow-AI/internal/outbox"
	"github.com/YehoanatnEzra/Callflow-AI/libs/db"
)

const meetingColumns = `id::text, company_id, COALESCE(prospect_name, ''), COALESCE(prospect_contact, ''),
	COALESCE(call_id, ''), start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''),
	COALESCE(notes, ''), created_at`

// MeetingRepository implements ledger.Ledger on Postgres. Per-company
// serialization uses a transaction-scoped advisory lock keyed on the company
// ID, so two concurrent bookings for the same company re-check overlap one
// after the other while other companies proceed unblocked.
type MeetingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewMeetingRepository(pool *db.Pool, ob *outbox.Repository) *MeetingRepository {
	return &MeetingRepository{pool: pool, outbox: ob}
}

func (r *MeetingRepository) TryBook(ctx context.Context, b ledger.Booking) (model.Meeting, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Meeting{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.CompanyID); err != nil {
		return model.Meeting{}, storeErr(err)
	}

	start := b.Slot.Start.UTC()
	end := b.Slot.End().UTC()

	var taken bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM meetings
			WHERE company_id = $1
				AND status = 'booked'
				AND start_time < $3
				AND end_time > $2
		)
	`, b.CompanyID, start, end).Scan(&taken)
	if err != nil {
		return model.Meeting{}, storeErr(err)
	}
	if taken {
		return model.Meeting{}, ledger.ErrSlotConflict
	}

	m := model.Meeting{
		CompanyID:       b.CompanyID,
		ProspectName:    b.Prospect.Name,
		ProspectContact: b.Prospect.Contact(),
		CallID:          b.CallID,
		Start:           start,
		Duration:        b.Slot.Duration,
		Status:          model.StatusBooked,
		Notes:           b.Notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO meetings
			(company_id, prospect_name, prospect_contact, call_id, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text, created_at
	`, m.CompanyID, m.ProspectName, m.ProspectContact, m.CallID, start, end, m.Status, m.Notes).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return model.Meeting{}, storeErr(err)
	}

	if err := r.outbox.Insert(ctx, tx, outbox.MeetingBooked(m)); err != nil {
		return model.Meeting{}, storeErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Meeting{}, storeErr(err)
	}
	return m, nil
}

func (r *MeetingRepository) List(ctx context.Context, companyID string, f ledger.Filter) ([]model.Meeting, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE company_id = $1`
	args := []any{companyID}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		query += fmt.Sprintf(" AND end_time > $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		query += fmt.Sprintf(" AND start_time < $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY start_time ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		meetings = append(meetings, m)
	}
	if rows.Err() != nil {
		return nil, storeErr(rows.Err())
	}
	return meetings, nil
}

func (r *MeetingRepository) Cancel(ctx context.Context, companyID, meetingID, reason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var m model.Meeting
	var end time.Time
	err = tx.QueryRow(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE id = $1 AND company_id = $2
		FOR UPDATE
	`, meetingID, companyID).Scan(
		&m.ID, &m.CompanyID, &m.ProspectName, &m.ProspectContact, &m.CallID,
		&m.Start, &end, &m.Status, &m.CancelledAt, &m.CancelReason,
		&m.Notes, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return storeErr(err)
	}
	m.Start = m.Start.UTC()
	m.Duration = end.Sub(m.Start)
	if m.Status == model.StatusCancelled {
		return nil
	}

	var cancelledAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE meetings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id = $1 AND company_id = $2
		RETURNING cancelled_at
	`, meetingID, companyID, reason).Scan(&cancelledAt)
	if err != nil {
		return storeErr(err)
	}
	m.Status = model.StatusCancelled
	m.CancelledAt = &cancelledAt
	m.CancelReason = reason

	if err := r.outbox.Insert(ctx, tx, outbox.MeetingCancelled(m)); err != nil {
		return storeErr(err)
	}
	return storeErr(tx.Commit(ctx))
}

func (r *MeetingRepository) Reschedule(ctx context.Context, companyID, meetingID string, start time.Time) (model.Meeting, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Meeting{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, companyID); err != nil {
		return model.Meeting{}, storeErr(err)
	}

	var m model.Meeting
	var end time.Time
	err = tx.QueryRow(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE id = $1 AND company_id = $2
		FOR UPDATE
	`, meetingID, companyID).Scan(
		&m.ID, &m.CompanyID, &m.ProspectName, &m.ProspectContact, &m.CallID,
		&m.Start, &end, &m.Status, &m.CancelledAt, &m.CancelReason,
		&m.Notes, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Meeting{}, ledger.ErrNotFound
	}
	if err != nil {
		return model.Meeting{}, storeErr(err)
	}
	m.Start = m.Start.UTC()
	m.Duration = end.Sub(m.Start)
	if m.Status != model.StatusBooked {
		return model.Meeting{}, ledger.ErrNotFound
	}

	newStart := start.UTC()
	newEnd := newStart.Add(m.Duration)

	var taken bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM meetings
			WHERE company_id = $1
				AND id <> $2
				AND status = 'booked'
				AND start_time < $4
				AND end_time > $3
		)
	`, companyID, meetingID, newStart, newEnd).Scan(&taken)
	if err != nil {
		return model.Meeting{}, storeErr(err)
	}
	if taken {
		return model.Meeting{}, ledger.ErrSlotConflict
	}

	if _, err := tx.Exec(ctx, `
		UPDATE meetings
		SET start_time = $3, end_time = $4
		WHERE id = $1 AND company_id = $2
	`, meetingID, companyID, newStart, newEnd); err != nil {
		return model.Meeting{}, storeErr(err)
	}
	m.Start = newStart

	if err := r.outbox.Insert(ctx, tx, outbox.MeetingRescheduled(m)); err != nil {
		return model.Meeting{}, storeErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Meeting{}, storeErr(err)
	}
	return m, nil
}

func (r *MeetingRepository) ClearAll(ctx context.Context, companyID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE company_id = $1`, companyID)
	return storeErr(err)
}

func (r *MeetingRepository) BookedIntervals(ctx context.Context, companyID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM meetings
		WHERE company_id = $1
			AND status = 'booked'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, companyID, from.UTC(), to.UTC())
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, storeErr(err)
		}
		iv.Start = iv.Start.UTC()
		iv.End = iv.End.UTC()
		intervals = append(intervals, iv)
	}
	if rows.Err() != nil {
		return nil, storeErr(rows.Err())
	}
	return intervals, nil
}

func scanMeeting(rows pgx.Rows) (model.Meeting, error) {
	var m model.Meeting
	var end time.Time
	err := rows.Scan(
		&m.ID, &m.CompanyID, &m.ProspectName, &m.ProspectContact, &m.CallID,
		&m.Start, &end, &m.Status, &m.CancelledAt, &m.CancelReason,
		&m.Notes, &m.CreatedAt,
	)
	if err != nil {
		return model.Meeting{}, err
	}
	m.Start = m.Start.UTC()
	m.Duration = end.Sub(m.Start)
	return m, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ledger.ErrUnavailable, err)
}
