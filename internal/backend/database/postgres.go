package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the postgres error code for a duplicate key.
const uniqueViolation = "23505"

// PostgresDatabase keeps items in a hosted postgres table. Schema and
// queries mirror the sqlite store with postgres placeholders.
type PostgresDatabase struct {
	db *sql.DB
}

func NewPostgresDatabase(connectionString string) (DatabaseService, error) {
	if connectionString == "" {
		return nil, errors.New("postgres database requires a connection string")
	}
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresDatabase{db: db}, nil
}

func (s *PostgresDatabase) CreateDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS portfolio_items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		original_name TEXT NOT NULL,
		stored_name TEXT NOT NULL UNIQUE,
		mime_type TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		url TEXT NOT NULL,
		uploaded_at BIGINT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_portfolio_items_uploaded_at ON portfolio_items (uploaded_at)`)
	return err
}

func (s *PostgresDatabase) Close() error {
	return s.db.Close()
}

func (s *PostgresDatabase) DoesDatabaseExist() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

func (s *PostgresDatabase) CreateItem(ctx context.Context, item *PortfolioItem) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO portfolio_items ("+itemColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		item.ID, item.Title, item.Description, item.OriginalName, item.StoredName,
		item.MimeType, item.SizeBytes, item.URL, item.UploadedAt.UnixNano(), item.Width, item.Height)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("item with id %s already exists: %w", item.ID, err)
		}
		return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
	}
	return nil
}

func (s *PostgresDatabase) GetItems(ctx context.Context) ([]*PortfolioItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM portfolio_items ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
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

func (s *PostgresDatabase) GetItemByID(ctx context.Context, id string) (*PortfolioItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM portfolio_items WHERE id = $1", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes and returns the row in a single statement.
func (s *PostgresDatabase) DeleteItem(ctx context.Context, id string) (*PortfolioItem, error) {
	row := s.db.QueryRowContext(ctx, "DELETE FROM portfolio_items WHERE id = $1 RETURNING "+itemColumns, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return item, nil
}
