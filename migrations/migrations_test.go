package migrations

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListContainsReminderUniqueness(t *testing.T) {
	ms, err := List()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, "001_init", ms[0].Version)
	assert.Contains(t, ms[0].SQL, "uq_reminders_birthday_pending")
	assert.Contains(t, ms[0].SQL, "uq_reminders_payment_pending")
}

func TestUserRolesOnlyAdminRoles(t *testing.T) {
	ms, err := List()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Contains(t, ms[0].SQL, "CHECK (role IN ('super_admin', 'admin'))")
	assert.NotContains(t, ms[0].SQL, "'staff'")
}

func TestApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs("001_init").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS residents")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")).
		WithArgs("001_init").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := Apply(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySkipsAppliedAndRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	applied, err := Apply(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())

	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	defer db2.Close()

	mock2.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock2.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock2.ExpectBegin()
	mock2.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("permission denied"))
	mock2.ExpectRollback()

	_, err = Apply(context.Background(), db2, zap.NewNop())
	require.Error(t, err)
	require.NoError(t, mock2.ExpectationsWereMet())
}
