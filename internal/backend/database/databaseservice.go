package database

import "context"

type DatabaseService interface {
	// CreateDatabase bootstraps the backend (schema, directories). It is idempotent.
	CreateDatabase() error
	DoesDatabaseExist() bool
	Close() error

	CreateItem(ctx context.Context, item *PortfolioItem) error
	// GetItems returns all items ordered by upload time, newest first.
	GetItems(ctx context.Context) ([]*PortfolioItem, error)
	GetItemByID(ctx context.Context, id string) (*PortfolioItem, error)
	// DeleteItem removes the item and returns what was removed, or ErrItemNotFound.
	DeleteItem(ctx context.Context, id string) (*PortfolioItem, error)
}
