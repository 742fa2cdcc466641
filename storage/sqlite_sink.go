package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"chintai_scraper/models"
)

// SQLiteSink writes the listing snapshot into a SQLite table with
// full-refresh semantics. This is the default sink and matches the
// file/table layout the downstream UI already reads.
type SQLiteSink struct {
	db    *sql.DB
	table string
}

func NewSQLiteSink(dbPath, table string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	sink := &SQLiteSink{db: db, table: table}
	if err := sink.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) ensureSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %q (
		id TEXT PRIMARY KEY,
		"名称" TEXT,
		"カテゴリ" TEXT,
		"アドレス" TEXT,
		"築年数" INTEGER,
		"構造" INTEGER,
		"階数" INTEGER,
		"家賃" REAL,
		"管理費" REAL,
		"敷金" REAL,
		"礼金" REAL,
		"間取り" TEXT,
		"面積" REAL,
		"区" TEXT,
		"市町" TEXT,
		"漢数字アドレス" TEXT,
		"緯度" REAL,
		"経度" REAL,
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
		scraped_at DATETIME
	)`, s.table)

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) Replace(ctx context.Context, listings []models.Listing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q", s.table)); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}

	cols := make([]string, len(snapshotColumns))
	for i, c := range snapshotColumns {
		cols[i] = fmt.Sprintf("%q", c)
	}
	placeholders := strings.TrimRight(strings.Repeat("?, ", len(snapshotColumns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		if _, err := stmt.ExecContext(ctx, snapshotValues(l)...); err != nil {
			return fmt.Errorf("insert %s: %w", l.ID, err)
		}
	}

	return tx.Commit()
}
