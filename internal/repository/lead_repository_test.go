package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/leadcrm/internal/model"
	"github.com/kkkkikiki/leadcrm/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestClaimLostWinsWhenStillPerso(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLeadRepository()
	now := time.Now()

	mock.ExpectExec(`UPDATE leads`).
		WithArgs(now, "user-1", "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.ClaimLost(context.Background(), db, "lead-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLostReportsZeroRowsWhenAlreadyClaimed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLeadRepository()
	now := time.Now()

	// The conditional WHERE status='PERSO' matched nothing: another
	// claimant's write got there first. No error, just zero rows.
	mock.ExpectExec(`UPDATE leads`).
		WithArgs(now, "user-2", "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.ClaimLost(context.Background(), db, "lead-1", "user-2", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBindsEveryLifecycleColumn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLeadRepository()

	now := time.Now()
	owner := "user-x"
	lead := &model.Lead{
		ID:             "lead-1",
		Status:         model.StatusInTrattativa,
		Contacted:      true,
		ContactedAt:    &now,
		CallAttempts:   2,
		FirstAttemptAt: &now,
		LastAttemptAt:  &now,
		AssignedToID:   &owner,
	}

	// Twelve SET columns plus the id in the WHERE clause. A mismatch
	// here means the statement silently updates nothing (or the wrong
	// row), so every placeholder is pinned.
	mock.ExpectExec(`UPDATE leads`).
		WithArgs("IN_TRATTATIVA", true, now, false, nil, 2, now, now,
			nil, nil, owner, sqlmock.AnyArg(), "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), db, lead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepUpdatesAreSetBased(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLeadRepository()
	now := time.Now()

	mock.ExpectExec(`UPDATE leads`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE leads`).WillReturnResult(sqlmock.NewResult(0, 1))

	inactive, err := repo.SweepInactive(context.Background(), db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inactive)

	legacy, err := repo.SweepLegacyContacts(context.Background(), db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), legacy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLostPaginates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLeadRepository()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads`).
		WithArgs("%rossi%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	mock.ExpectQuery(`SELECT id, name`).
		WithArgs("%rossi%", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).
			AddRow("lead-1", "Mario Rossi", "PERSO").
			AddRow("lead-2", "Anna Rossini", "PERSO"))

	leads, total, err := repo.ListLost(context.Background(), db, repository.LostLeadFilter{
		Search:   "rossi",
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, leads, 2)
	assert.Equal(t, "Mario Rossi", leads[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
