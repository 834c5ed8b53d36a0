package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"scoreboard/core"
)

// Config holds Redis connection configuration
type Config struct {
	// URL takes precedence over Addr/Password/DB when set (redis://host:port/db).
	URL          string
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TTL expires cached boards and users; zero keeps them forever.
	TTL            time.Duration
	CircuitBreaker bool
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:           "[::1]:6379",
		Password:       "",
		DB:             0,
		PoolSize:       10,
		MinIdleConns:   2,
		DialTimeout:    5 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
		CircuitBreaker: true,
	}
}

// Store implements engine.ScoreCache on Redis.
// Data structure:
// - scoreboard:{id} -> JSON ScoreBoard
// - user:{id} -> JSON User
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func (c Config) options() (*redis.Options, error) {
	opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
	if c.URL != "" {
		parsed, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = c.MinIdleConns
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	return opts, nil
}

// New creates a new Redis-backed cache with the provided configuration
func New(config Config) (*Store, error) {
	opts, err := config.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	client.AddHook(&MetricsHook{})
	if config.CircuitBreaker {
		client.AddHook(NewBreakerHook())
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, ttl: config.TTL}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// WithTTL returns a copy of the store that expires written keys after ttl.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	cp := *s
	cp.ttl = ttl
	return &cp
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) CreateBoard(ctx context.Context) (core.ScoreBoard, error) {
	board := core.NewScoreBoard()
	if err := s.SetBoard(ctx, board); err != nil {
		return core.ScoreBoard{}, err
	}
	return board, nil
}

func (s *Store) GetBoard(ctx context.Context, id uuid.UUID) (core.ScoreBoard, bool, error) {
	var board core.ScoreBoard
	ok, err := s.get(ctx, core.BoardKey(id), &board)
	if err != nil || !ok {
		return core.ScoreBoard{}, false, err
	}
	if board.Users == nil {
		board.Users = []core.User{}
	}
	return board, true, nil
}

func (s *Store) SetBoard(ctx context.Context, board core.ScoreBoard) error {
	return s.set(ctx, core.BoardKey(board.ID), board)
}

func (s *Store) SetUser(ctx context.Context, user core.User) error {
	return s.set(ctx, core.UserKey(user.ID), user)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (core.User, bool, error) {
	var user core.User
	ok, err := s.get(ctx, core.UserKey(id), &user)
	if err != nil || !ok {
		return core.User{}, false, err
	}
	if user.Scores == nil {
		user.Scores = []core.Score{}
	}
	return user, true, nil
}

func (s *Store) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// get reads key into v. A missing key, a non-string key or a value of another
// shape all report false without error.
func (s *Store) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || isWrongType(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return false, nil
	}
	return true, nil
}

func isWrongType(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE")
}
