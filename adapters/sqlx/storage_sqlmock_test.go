package sqlx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	storage "scoreboard/adapters/sqlx"
	"scoreboard/core"
)

func newMockStore(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver), mock
}

var accountCols = []string{"id", "email", "user_name", "created_at", "phone_number", "encrypted_password", "is_anonymous"}

func TestSQLMock_CreateAnonUser_Postgres(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO users \(is_anonymous\) VALUES \(true\) RETURNING`).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(id.String(), nil, nil, now, nil, nil, true))

	acc, err := store.CreateAnonUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, id, acc.ID)
	require.True(t, acc.IsAnonymous)
	require.Nil(t, acc.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_CreateAnonUser_MySQL(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverMySQL)

	mock.ExpectExec(`INSERT INTO users \(id, created_at, is_anonymous\) VALUES \(\?, \?, true\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acc, err := store.CreateAnonUser(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, acc.ID)
	require.True(t, acc.IsAnonymous)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_CreateLeaderboard(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPGX)

	mock.ExpectQuery(`INSERT INTO leaderboards \(name\) VALUES \(\$1\) RETURNING id, name`).
		WithArgs("weekly").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(4, "weekly"))

	lb, err := store.CreateLeaderboard(context.Background(), "weekly")
	require.NoError(t, err)
	require.Equal(t, core.Leaderboard{ID: 4, Name: "weekly"}, lb)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_CreateLeaderboard_MySQL(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverMySQL)

	mock.ExpectExec(`INSERT INTO leaderboards \(name\) VALUES \(\?\)`).
		WithArgs("weekly").
		WillReturnResult(sqlmock.NewResult(9, 1))

	lb, err := store.CreateLeaderboard(context.Background(), "weekly")
	require.NoError(t, err)
	require.Equal(t, core.Leaderboard{ID: 9, Name: "weekly"}, lb)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_ListLeaderboards(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectQuery(`SELECT id, name FROM leaderboards ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "daily").AddRow(2, "weekly"))

	list, err := store.ListLeaderboards(context.Background())
	require.NoError(t, err)
	require.Equal(t, []core.Leaderboard{{ID: 1, Name: "daily"}, {ID: 2, Name: "weekly"}}, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddMember(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)
	player := uuid.New()

	mock.ExpectExec(`INSERT INTO leaderboard_members \(leaderboard, player\) VALUES \(\$1, \$2\)`).
		WithArgs(int32(1), player).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.AddMember(context.Background(), 1, player))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddMember_ForeignKeyIsNotFound(t *testing.T) {
	fkErrors := map[storage.Driver]error{
		storage.DriverPostgres: &pq.Error{Code: "23503"},
		storage.DriverPGX:      &pgconn.PgError{Code: "23503"},
		storage.DriverMySQL:    &mysql.MySQLError{Number: 1452},
	}
	for driver, fkErr := range fkErrors {
		t.Run(string(driver), func(t *testing.T) {
			store, mock := newMockStore(t, driver)
			mock.ExpectExec(`INSERT INTO leaderboard_members`).WillReturnError(fkErr)

			err := store.AddMember(context.Background(), 1, uuid.New())
			require.ErrorIs(t, err, core.ErrNotFound)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLMock_AddMember_OtherErrorsPropagate(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)
	boom := errors.New("connection reset")
	mock.ExpectExec(`INSERT INTO leaderboard_members`).WillReturnError(boom)

	err := store.AddMember(context.Background(), 1, uuid.New())
	require.ErrorIs(t, err, boom)
	require.False(t, errors.Is(err, core.ErrNotFound))
}

func TestSQLMock_Members(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)
	player := uuid.New()
	alias := "ace"

	mock.ExpectQuery(`SELECT id, leaderboard, player_alias, player FROM leaderboard_members WHERE leaderboard = \$1`).
		WithArgs(int32(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "leaderboard", "player_alias", "player"}).
			AddRow(1, 3, alias, player.String()).
			AddRow(2, 3, nil, player.String()))

	members, err := store.Members(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, alias, *members[0].PlayerAlias)
	require.Nil(t, members[1].PlayerAlias)
	require.Equal(t, player, members[1].Player)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfig_Validate(t *testing.T) {
	cfg := storage.DefaultConfig(storage.DriverPostgres)
	require.Error(t, cfg.Validate())
	cfg.DSN = "postgres://localhost/scoreboard"
	require.NoError(t, cfg.Validate())
	cfg.Driver = "sqlite"
	require.Error(t, cfg.Validate())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := storage.New(storage.Config{Driver: storage.DriverPostgres})
	require.Error(t, err)
}
