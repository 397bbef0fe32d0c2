package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/issueradar/crawler/internal/tracker"
)

// ApplicationStore persists monitored applications in Postgres.
type ApplicationStore struct {
	db querier
}

// NewApplicationStore wraps an existing pool (or pgxmock in tests).
func NewApplicationStore(db querier) (*ApplicationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db pool is required")
	}
	return &ApplicationStore{db: db}, nil
}

const applicationColumns = "id, name, vendor, keywords, created_at"

// ListAll returns every application sorted by name.
func (s *ApplicationStore) ListAll(ctx context.Context) ([]tracker.Application, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []tracker.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// GetByID returns tracker.ErrApplicationNotFound for an unknown ID.
func (s *ApplicationStore) GetByID(ctx context.Context, id string) (tracker.Application, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return tracker.Application{}, tracker.ErrApplicationNotFound
	}
	if err != nil {
		return tracker.Application{}, fmt.Errorf("get application %s: %w", id, err)
	}
	return app, nil
}

// Create inserts an application; the store assigns ID and creation time.
func (s *ApplicationStore) Create(ctx context.Context, name, vendor string, keywords []string) (tracker.Application, error) {
	if name == "" {
		return tracker.Application{}, fmt.Errorf("application name is required")
	}
	if len(keywords) == 0 {
		return tracker.Application{}, fmt.Errorf("at least one keyword is required")
	}

	var vendorArg *string
	if vendor != "" {
		vendorArg = &vendor
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO applications (name, vendor, keywords)
VALUES ($1, $2, $3)
RETURNING `+applicationColumns, name, vendorArg, keywords)

	app, err := scanApplication(row)
	if err != nil {
		return tracker.Application{}, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func scanApplication(row pgx.Row) (tracker.Application, error) {
	var (
		app    tracker.Application
		vendor *string
	)
	if err := row.Scan(&app.ID, &app.Name, &vendor, &app.Keywords, &app.CreatedAt); err != nil {
		return tracker.Application{}, err
	}
	if vendor != nil {
		app.Vendor = *vendor
	}
	return app, nil
}
