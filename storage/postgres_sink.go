package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chintai_scraper/models"
)

// PostgresSink is the snapshot writer for deployments that keep the
// listing table in Postgres. Same full-refresh contract as the SQLite
// sink.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresSink(ctx context.Context, connString, table string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	sink := &PostgresSink{pool: pool, table: table}
	if err := sink.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		"名称" TEXT,
		"カテゴリ" TEXT,
		"アドレス" TEXT,
		"築年数" INTEGER,
		"構造" INTEGER,
		"階数" INTEGER,
		"家賃" DOUBLE PRECISION,
		"管理費" DOUBLE PRECISION,
		"敷金" DOUBLE PRECISION,
		"礼金" DOUBLE PRECISION,
		"間取り" TEXT,
		"面積" DOUBLE PRECISION,
		"区" TEXT,
		"市町" TEXT,
		"漢数字アドレス" TEXT,
		"緯度" DOUBLE PRECISION,
		"経度" DOUBLE PRECISION,
		"アクセス1線路名" TEXT,
		"アクセス1駅名" TEXT,
		"アクセス1徒歩分" INTEGER,
		"アクセス2線路名" TEXT,
		"アクセス2駅名" TEXT,
		"アクセス2徒歩分" INTEGER,
		"アクセス3線路名" TEXT,
		"アクセス3駅名" TEXT,
		"アクセス3徒歩分" INTEGER,
		"物件画像URL" TEXT,
		"間取画像URL" TEXT,
		"物件詳細URL" TEXT,
		scraped_at TIMESTAMPTZ
	)`, pgx.Identifier{s.table}.Sanitize())

	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresSink) Replace(ctx context.Context, listings []models.Listing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	table := pgx.Identifier{s.table}.Sanitize()
	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}

	cols := make([]string, len(snapshotColumns))
	placeholders := make([]string, len(snapshotColumns))
	for i, c := range snapshotColumns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(insert, snapshotValues(l)...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	return tx.Commit(ctx)
}
