package contacts

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/agency-backend/internal/contacts/domain"
)

func setupRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepo(db), mock
}

func contactRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "firebase_uid", "email", "display_name",
		"role", "prospect_status", "created_at", "updated_at",
	})
}

func TestRepoEnsure(t *testing.T) {
	repo, mock := setupRepo(t)

	t.Run("upserts by firebase uid", func(t *testing.T) {
		mock.ExpectQuery(`insert into contacts`).
			WithArgs("fb-1", "ada@x.io", "Ada").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1"))

		id, err := repo.Ensure(context.Background(), UpsertContact{
			FirebaseUID: "fb-1",
			Email:       "ada@x.io",
			DisplayName: "Ada",
		})
		require.NoError(t, err)
		assert.Equal(t, "c-1", id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requires a firebase uid", func(t *testing.T) {
		_, err := repo.Ensure(context.Background(), UpsertContact{})
		assert.Error(t, err)
	})
}

func TestRepoListStaffIDs(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(`select id::text\s+from contacts\s+where role = 'staff'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-1").AddRow("s-2"))

	ids, err := repo.ListStaffIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1", "s-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoSelectStaleProspects(t *testing.T) {
	repo, mock := setupRepo(t)

	t.Run("filters on early funnel statuses and a strict cutoff", func(t *testing.T) {
		old := time.Now().Add(-30 * 24 * time.Hour)
		mock.ExpectQuery(`prospect_status in \('new', 'contacted'\)\s+and created_at < \$1`).
			WithArgs(cutoffWithin(t, 7*24*time.Hour)).
			WillReturnRows(contactRows().
				AddRow("c-1", "fb-1", "a@x.io", "Ada", "prospect", "new", old, old).
				AddRow("c-2", "fb-2", "b@x.io", "Ben", "prospect", "contacted", old, old))

		out, err := repo.SelectStaleProspects(context.Background(), 7*24*time.Hour)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, domain.ProspectNew, out[0].ProspectStatus)
		assert.Equal(t, domain.ProspectContacted, out[1].ProspectStatus)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows is a valid outcome", func(t *testing.T) {
		mock.ExpectQuery(`prospect_status in`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(contactRows())

		out, err := repo.SelectStaleProspects(context.Background(), 7*24*time.Hour)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestRepoCountStaleProspects(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(`select count\(\*\)`).
		WithArgs(cutoffWithin(t, 3*24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountStaleProspects(context.Background(), 3*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoMarkContacted(t *testing.T) {
	repo, mock := setupRepo(t)

	// the status guard sits in the statement itself
	mock.ExpectExec(`(?s)set prospect_status = 'contacted'.*where id = \$1::uuid and prospect_status = 'new'`).
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkContacted(context.Background(), "c-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

// cutoffWithin asserts that the bound cutoff argument sits where
// now-staleness should: strictly in the past, close to the expected
// boundary.
func cutoffWithin(t *testing.T, staleness time.Duration) sqlmock.Argument {
	t.Helper()
	return cutoffMatcher{t: t, staleness: staleness}
}

type cutoffMatcher struct {
	t         *testing.T
	staleness time.Duration
}

func (m cutoffMatcher) Match(v driver.Value) bool {
	cutoff, ok := v.(time.Time)
	if !ok {
		return false
	}
	want := time.Now().Add(-m.staleness)
	diff := cutoff.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	return diff < 5*time.Second
}
