package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const itemColumns = "id, title, description, original_name, stored_name, mime_type, size_bytes, url, uploaded_at, width, height"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" opens its own empty database.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS portfolio_items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		original_name TEXT NOT NULL,
		stored_name TEXT NOT NULL UNIQUE,
		mime_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		url TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_portfolio_items_uploaded_at ON portfolio_items (uploaded_at)`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateItem(ctx context.Context, item *PortfolioItem) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO portfolio_items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.Title, item.Description, item.OriginalName, item.StoredName,
		item.MimeType, item.SizeBytes, item.URL, item.UploadedAt.UnixNano(), item.Width, item.Height)
	if err != nil {
		return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
	}
	return nil
}

func (s *SQLiteDatabase) GetItems(ctx context.Context) ([]*PortfolioItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM portfolio_items ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	items := make([]*PortfolioItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SQLiteDatabase) GetItemByID(ctx context.Context, id string) (*PortfolioItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM portfolio_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SQLiteDatabase) DeleteItem(ctx context.Context, id string) (*PortfolioItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback() // no-op once committed
	}()

	row := tx.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM portfolio_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM portfolio_items WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*PortfolioItem, error) {
	var item PortfolioItem
	var uploadedAt int64
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.OriginalName, &item.StoredName,
		&item.MimeType, &item.SizeBytes, &item.URL, &uploadedAt, &item.Width, &item.Height); err != nil {
		return nil, err
	}
	item.UploadedAt = time.Unix(0, uploadedAt).UTC()
	return &item, nil
}
