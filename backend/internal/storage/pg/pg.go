package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/logger"
	sharedpg "github.com/itchan-dev/caster/shared/storage/pg"
)

const schema = `
CREATE TABLE IF NOT EXISTS link_previews (
	url        TEXT PRIMARY KEY,
	preview    JSONB,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const fetchedAtIndex = `CREATE INDEX IF NOT EXISTS link_previews_fetched_at_idx ON link_previews (fetched_at)`

// Storage is the link preview cache shared between previews-api replicas.
// A row with a NULL preview records a URL that resolved to nothing usable.
type Storage struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	log := logger.Component("preview_cache")
	log.Info("connecting to db", "host", cfg.Private.Pg.Host)

	db, err := sharedpg.Connect(ctx, cfg.Private.Pg, sharedpg.DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	if err := sharedpg.EnsureSchema(ctx, db, schema, fetchedAtIndex); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("connected to db")
	return &Storage{db: db, ttl: cfg.Public.Previews.CacheTTL, now: time.Now}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns ok == false when the URL is unknown or its entry expired.
func (s *Storage) Get(ctx context.Context, url string) (*domain.EmbedPreview, bool, error) {
	return s.get(ctx, s.db, url)
}

func (s *Storage) Put(ctx context.Context, url string, preview *domain.EmbedPreview) error {
	return s.put(ctx, s.db, url, preview)
}

// Sweep deletes expired entries and returns how many were removed.
func (s *Storage) Sweep(ctx context.Context) (int, error) {
	return s.sweep(ctx, s.db)
}

func (s *Storage) get(ctx context.Context, q sharedpg.Querier, url string) (*domain.EmbedPreview, bool, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `
		SELECT preview
		FROM link_previews
		WHERE url = $1 AND fetched_at >= $2`,
		url, s.now().Add(-s.ttl),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query link preview: %w", err)
	}
	if raw == nil {
		return nil, true, nil
	}

	var preview domain.EmbedPreview
	if err := json.Unmarshal(raw, &preview); err != nil {
		return nil, false, fmt.Errorf("failed to decode link preview: %w", err)
	}
	return &preview, true, nil
}

func (s *Storage) put(ctx context.Context, q sharedpg.Querier, url string, preview *domain.EmbedPreview) error {
	var raw []byte
	if preview != nil {
		var err error
		if raw, err = json.Marshal(preview); err != nil {
			return fmt.Errorf("failed to encode link preview: %w", err)
		}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO link_previews (url, preview, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (url)
		DO UPDATE SET
			preview = EXCLUDED.preview,
			fetched_at = EXCLUDED.fetched_at`,
		url, nullableJSON(raw), s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to store link preview: %w", err)
	}
	return nil
}

func (s *Storage) sweep(ctx context.Context, q sharedpg.Querier) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM link_previews WHERE fetched_at < $1", s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep link previews: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept link previews: %w", err)
	}
	return int(n), nil
}

func nullableJSON(raw []byte) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}
