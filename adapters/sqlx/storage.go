package sqlx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"scoreboard/core"
	"scoreboard/metrics"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	DriverPostgres Driver = "postgres" // lib/pq
	DriverPGX      Driver = "pgx"      // jackc/pgx stdlib
	DriverMySQL    Driver = "mysql"
)

// Config holds relational store configuration
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

// DefaultConfig returns pool defaults for the given driver; DSN is left empty.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverPGX, DriverMySQL:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn cannot be empty")
	}
	return nil
}

// Store implements engine.UserStore and engine.LeaderboardStore.
// Tables:
// - users(id uuid, email, user_name, created_at, phone_number, encrypted_password, is_anonymous)
// - leaderboards(id serial, name)
// - leaderboard_members(id serial, leaderboard -> leaderboards.id, player_alias, player -> users.id)
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a pool and checks connectivity.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB wraps an existing handle (useful for testing)
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) returning() bool { return s.driver != DriverMySQL }

func observe(query string, start time.Time, err error) {
	metrics.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues(query).Inc()
	}
}

const accountColumns = `id, email, user_name, created_at, phone_number, encrypted_password, is_anonymous`

func (s *Store) CreateAnonUser(ctx context.Context) (acc core.Account, err error) {
	defer func(start time.Time) { observe("create_anon_user", start, err) }(time.Now())

	if s.returning() {
		q := `INSERT INTO users (is_anonymous) VALUES (true) RETURNING ` + accountColumns
		if err = s.db.GetContext(ctx, &acc, q); err != nil {
			return core.Account{}, fmt.Errorf("create anonymous user: %w", err)
		}
		return acc, nil
	}

	acc = core.Account{ID: uuid.New(), CreatedAt: time.Now().UTC().Truncate(time.Second), IsAnonymous: true}
	q := s.db.Rebind(`INSERT INTO users (id, created_at, is_anonymous) VALUES (?, ?, true)`)
	if _, err = s.db.ExecContext(ctx, q, acc.ID, acc.CreatedAt); err != nil {
		return core.Account{}, fmt.Errorf("create anonymous user: %w", err)
	}
	return acc, nil
}

func (s *Store) CreateLeaderboard(ctx context.Context, name string) (lb core.Leaderboard, err error) {
	defer func(start time.Time) { observe("create_leaderboard", start, err) }(time.Now())

	if s.returning() {
		q := s.db.Rebind(`INSERT INTO leaderboards (name) VALUES (?) RETURNING id, name`)
		if err = s.db.GetContext(ctx, &lb, q, name); err != nil {
			return core.Leaderboard{}, fmt.Errorf("create leaderboard: %w", err)
		}
		return lb, nil
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO leaderboards (name) VALUES (?)`), name)
	if err != nil {
		return core.Leaderboard{}, fmt.Errorf("create leaderboard: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Leaderboard{}, fmt.Errorf("create leaderboard: %w", err)
	}
	return core.Leaderboard{ID: int32(id), Name: name}, nil
}

func (s *Store) ListLeaderboards(ctx context.Context) (out []core.Leaderboard, err error) {
	defer func(start time.Time) { observe("list_leaderboards", start, err) }(time.Now())

	out = []core.Leaderboard{}
	if err = s.db.SelectContext(ctx, &out, `SELECT id, name FROM leaderboards ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list leaderboards: %w", err)
	}
	return out, nil
}

func (s *Store) AddMember(ctx context.Context, leaderboard int32, player uuid.UUID) (err error) {
	defer func(start time.Time) { observe("add_member", start, err) }(time.Now())

	q := s.db.Rebind(`INSERT INTO leaderboard_members (leaderboard, player) VALUES (?, ?)`)
	if _, err = s.db.ExecContext(ctx, q, leaderboard, player); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("leaderboard %d or player %s: %w", leaderboard, player, core.ErrNotFound)
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *Store) Members(ctx context.Context, leaderboard int32) (out []core.LeaderboardMember, err error) {
	defer func(start time.Time) { observe("members", start, err) }(time.Now())

	out = []core.LeaderboardMember{}
	q := s.db.Rebind(`SELECT id, leaderboard, player_alias, player FROM leaderboard_members WHERE leaderboard = ? ORDER BY id`)
	if err = s.db.SelectContext(ctx, &out, q, leaderboard); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

// isForeignKeyViolation recognises the error of every supported driver.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1452
	}
	return false
}
