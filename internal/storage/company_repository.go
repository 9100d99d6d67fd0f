package storage

import (
	"context"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/company"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
	"github.com/YehoanatnEzra/Callflow-AI/libs/db"
)

// CompanyRepository implements company.Source on Postgres. A missing profile
// is created with defaults on first lookup, which keeps dev UX smooth while
// companies get onboarded elsewhere.
type CompanyRepository struct {
	pool *db.Pool
}

func NewCompanyRepository(pool *db.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

func (r *CompanyRepository) Profile(ctx context.Context, companyID string) (company.Profile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO company_profiles (company_id)
		VALUES ($1)
		ON CONFLICT (company_id) DO NOTHING
	`, companyID)
	if err != nil {
		return company.Profile{}, err
	}

	var p company.Profile
	var durationMins int
	err = r.pool.QueryRow(ctx, `
		SELECT company_id::text, name, description, assistant_name, timezone, meeting_duration_minutes
		FROM company_profiles
		WHERE company_id = $1
	`, companyID).Scan(&p.CompanyID, &p.Name, &p.Description, &p.AssistantName, &p.Timezone, &durationMins)
	if err != nil {
		return company.Profile{}, err
	}
	p.MeetingDuration = time.Duration(durationMins) * time.Minute

	p.Windows, err = r.windows(ctx, companyID, p.Timezone)
	if err != nil {
		return company.Profile{}, err
	}
	return p, nil
}

func (r *CompanyRepository) UpdateProfile(ctx context.Context, p company.Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO company_profiles (company_id, name, description, assistant_name, timezone, meeting_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			assistant_name = EXCLUDED.assistant_name,
			timezone = EXCLUDED.timezone,
			meeting_duration_minutes = EXCLUDED.meeting_duration_minutes,
			updated_at = now()
	`, p.CompanyID, p.Name, p.Description, p.AssistantName, p.Timezone, int(p.MeetingDuration.Minutes()))
	return err
}

// ReplaceWindows swaps the company's window set atomically. A company may
// have several windows on the same weekday (split days); the union is
// offered, so every row is kept as-is.
func (r *CompanyRepository) ReplaceWindows(ctx context.Context, companyID string, ws []model.AvailabilityWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE company_id = $1`, companyID); err != nil {
		return err
	}
	for _, w := range ws {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (company_id, weekday, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
		`, companyID, int(w.Weekday), w.StartMinute, w.EndMinute)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// windows falls back to the default working week when nothing has been seeded
// for the company.
func (r *CompanyRepository) windows(ctx context.Context, companyID, tz string) ([]model.AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM availability_windows
		WHERE company_id = $1
		ORDER BY weekday ASC, start_minute ASC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var weekday int
		w := model.AvailabilityWindow{CompanyID: companyID, Timezone: tz}
		if err := rows.Scan(&weekday, &w.StartMinute, &w.EndMinute); err != nil {
			return nil, err
		}
		w.Weekday = time.Weekday(weekday)
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(out) == 0 {
		out = company.DefaultWindows(tz)
		for i := range out {
			out[i].CompanyID = companyID
		}
	}
	return out, nil
}
