package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/issueradar/crawler/internal/tracker"
)

func TestListAllOrdersByName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewApplicationStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	vendor := "Adobe"
	mock.ExpectQuery("SELECT id, name, vendor, keywords, created_at FROM applications ORDER BY name").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "vendor", "keywords", "created_at"}).
			AddRow("app-1", "Adobe Acrobat", &vendor, []string{"adobe acrobat"}, now).
			AddRow("app-2", "Zoom", (*string)(nil), []string{"zoom", "zoom meeting"}, now))

	apps, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	require.Equal(t, "Adobe Acrobat", apps[0].Name)
	require.Equal(t, "Adobe", apps[0].Vendor)
	require.Equal(t, "", apps[1].Vendor)
	require.Equal(t, []string{"zoom", "zoom meeting"}, apps[1].Keywords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewApplicationStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, name, vendor, keywords, created_at FROM applications WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "vendor", "keywords", "created_at"}))

	_, err = store.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, tracker.ErrApplicationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsApplication(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewApplicationStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	vendor := "Adobe"
	mock.ExpectQuery("INSERT INTO applications").
		WithArgs("Adobe Acrobat", &vendor, []string{"adobe acrobat", "acrobat dc"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "vendor", "keywords", "created_at"}).
			AddRow("app-123", "Adobe Acrobat", &vendor, []string{"adobe acrobat", "acrobat dc"}, now))

	app, err := store.Create(context.Background(), "Adobe Acrobat", "Adobe", []string{"adobe acrobat", "acrobat dc"})
	require.NoError(t, err)
	require.Equal(t, "app-123", app.ID)
	require.Equal(t, now, app.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsEmptyKeywords(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewApplicationStore(mock)
	require.NoError(t, err)

	_, err = store.Create(context.Background(), "App", "", nil)
	require.Error(t, err)
}
