package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const accessTokenKey = "access_token"

// TokenRecord is the persisted token row
type TokenRecord struct {
	bun.BaseModel `bun:"table:session_tokens,alias:tok"`
	Key           string     `bun:"key,pk" json:"key,omitempty"`
	Value         string     `bun:"value,notnull" json:"value,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunTokenStore persists the access token in a single-row SQLite table so it
// survives process restarts. Per the TokenStore contract, storage failures
// never escape: a failed read reports no token, a failed write is a no-op.
// Both are logged.
type BunTokenStore struct {
	db     *bun.DB
	logger Logger

	mu    sync.Mutex
	ready bool
}

// NewBunTokenStore opens (or creates) the SQLite database at path and wraps
// it in a token store. Use ":memory:" for a throwaway store.
func NewBunTokenStore(path string) (*BunTokenStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	return &BunTokenStore{db: db, logger: defLogger{}}, nil
}

// NewBunTokenStoreDB wraps an existing bun.DB, for applications that already
// carry a local database.
func NewBunTokenStoreDB(db *bun.DB) *BunTokenStore {
	return &BunTokenStore{db: db, logger: defLogger{}}
}

func (s *BunTokenStore) WithLogger(l Logger) *BunTokenStore {
	if l != nil {
		s.logger = l
	}
	return s
}

// Close releases the underlying database handle.
func (s *BunTokenStore) Close() error {
	return s.db.Close()
}

func (s *BunTokenStore) Get(ctx context.Context) (string, bool) {
	if err := s.ensureSchema(ctx); err != nil {
		s.logger.Warn("token store read skipped, schema unavailable: %v", err)
		return "", false
	}

	record := new(TokenRecord)
	err := s.db.NewSelect().
		Model(record).
		Where("key = ?", accessTokenKey).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("token store read failed: %v", err)
		}
		return "", false
	}
	if record.Value == "" {
		return "", false
	}
	return record.Value, true
}

func (s *BunTokenStore) Set(ctx context.Context, token string) {
	if token == "" {
		s.Clear(ctx)
		return
	}
	if err := s.ensureSchema(ctx); err != nil {
		s.logger.Warn("token store write skipped, schema unavailable: %v", err)
		return
	}

	now := time.Now()
	record := &TokenRecord{Key: accessTokenKey, Value: token, UpdatedAt: &now}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		s.logger.Warn("token store write failed: %v", err)
	}
}

func (s *BunTokenStore) Clear(ctx context.Context) {
	if err := s.ensureSchema(ctx); err != nil {
		s.logger.Warn("token store clear skipped, schema unavailable: %v", err)
		return
	}

	_, err := s.db.NewDelete().
		Model((*TokenRecord)(nil)).
		Where("key = ?", accessTokenKey).
		Exec(ctx)
	if err != nil {
		s.logger.Warn("token store clear failed: %v", err)
	}
}

func (s *BunTokenStore) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	_, err := s.db.NewCreateTable().
		Model((*TokenRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return err
	}
	s.ready = true
	return nil
}
