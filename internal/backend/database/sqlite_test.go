package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestDB(t *testing.T) DatabaseService {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// newTestItem builds an item uploaded at base+offset.
func newTestItem(t *testing.T, title string, uploadedAt time.Time) *PortfolioItem {
	t.Helper()
	id, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID error: %v", err)
	}
	return &PortfolioItem{
		ID:           id,
		Title:        title,
		Description:  "description of " + title,
		OriginalName: title + ".png",
		StoredName:   StoredName(id, title+".png"),
		MimeType:     "image/png",
		SizeBytes:    int64(len(title)),
		URL:          "/uploads/" + StoredName(id, title+".png"),
		UploadedAt:   uploadedAt.UTC(),
		Width:        32,
		Height:       16,
	}
}

// testDatabaseService runs the behaviour every metadata store must share.
func testDatabaseService(t *testing.T, newDB func(t *testing.T) DatabaseService) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("DoesDatabaseExist", func(t *testing.T) {
		ds := newDB(t)
		if !ds.DoesDatabaseExist() {
			t.Fatalf("expected DoesDatabaseExist to return true")
		}
	})

	t.Run("EmptyListIsNotNil", func(t *testing.T) {
		ds := newDB(t)
		items, err := ds.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems error: %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", items)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		ds := newDB(t)
		const n = 5
		// insert out of chronological order on purpose
		offsets := []int{2, 0, 4, 1, 3}
		for _, off := range offsets {
			item := newTestItem(t, fmt.Sprintf("item-%d", off), base.Add(time.Duration(off)*time.Minute))
			if err := ds.CreateItem(ctx, item); err != nil {
				t.Fatalf("CreateItem error: %v", err)
			}
		}

		items, err := ds.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems error: %v", err)
		}
		if len(items) != n {
			t.Fatalf("expected %d items, got %d", n, len(items))
		}
		for i := 0; i < len(items)-1; i++ {
			if !items[i].UploadedAt.After(items[i+1].UploadedAt) {
				t.Fatalf("items not strictly descending at %d: %v then %v", i, items[i].UploadedAt, items[i+1].UploadedAt)
			}
		}
		if items[0].Title != "item-4" {
			t.Fatalf("expected newest item first, got %q", items[0].Title)
		}
	})

	t.Run("RoundTripFields", func(t *testing.T) {
		ds := newDB(t)
		want := newTestItem(t, "logo", base.Add(123456789*time.Nanosecond))
		if err := ds.CreateItem(ctx, want); err != nil {
			t.Fatalf("CreateItem error: %v", err)
		}

		got, err := ds.GetItemByID(ctx, want.ID)
		if err != nil {
			t.Fatalf("GetItemByID error: %v", err)
		}
		if got.ID != want.ID || got.Title != want.Title || got.Description != want.Description ||
			got.OriginalName != want.OriginalName || got.StoredName != want.StoredName ||
			got.MimeType != want.MimeType || got.SizeBytes != want.SizeBytes || got.URL != want.URL ||
			got.Width != want.Width || got.Height != want.Height {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
		if !got.UploadedAt.Equal(want.UploadedAt) {
			t.Fatalf("UploadedAt mismatch: got %v, want %v", got.UploadedAt, want.UploadedAt)
		}
	})

	t.Run("GetUnknownItem", func(t *testing.T) {
		ds := newDB(t)
		_, err := ds.GetItemByID(ctx, "non-existent-id")
		if !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("DuplicateIDRejected", func(t *testing.T) {
		ds := newDB(t)
		item := newTestItem(t, "dup", base)
		if err := ds.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem error: %v", err)
		}
		if err := ds.CreateItem(ctx, item); err == nil {
			t.Fatalf("expected error when inserting duplicate id")
		}
	})

	t.Run("DeleteItem", func(t *testing.T) {
		ds := newDB(t)
		first := newTestItem(t, "a", base)
		second := newTestItem(t, "b", base.Add(time.Second))
		for _, item := range []*PortfolioItem{first, second} {
			if err := ds.CreateItem(ctx, item); err != nil {
				t.Fatalf("CreateItem error: %v", err)
			}
		}

		removed, err := ds.DeleteItem(ctx, first.ID)
		if err != nil {
			t.Fatalf("DeleteItem error: %v", err)
		}
		if removed.ID != first.ID || removed.StoredName != first.StoredName {
			t.Fatalf("DeleteItem returned %+v, want item %s", removed, first.ID)
		}

		items, err := ds.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems error: %v", err)
		}
		if len(items) != 1 || items[0].ID != second.ID {
			t.Fatalf("expected only %s to remain, got %+v", second.ID, items)
		}

		if _, err := ds.DeleteItem(ctx, first.ID); !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("second DeleteItem expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentInsertsAreNotLost", func(t *testing.T) {
		ds := newDB(t)
		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			item := newTestItem(t, fmt.Sprintf("c-%d", i), base.Add(time.Duration(i)*time.Second))
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- ds.CreateItem(ctx, item)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("CreateItem error: %v", err)
			}
		}

		items, err := ds.GetItems(ctx)
		if err != nil {
			t.Fatalf("GetItems error: %v", err)
		}
		if len(items) != n {
			t.Fatalf("expected %d items after concurrent inserts, got %d", n, len(items))
		}
	})
}

func TestSQLiteDatabase(t *testing.T) {
	testDatabaseService(t, newTestDB)
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	if _, err := NewDatabase("mongodb", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}

func TestNewDatabase_SQLite(t *testing.T) {
	ds, err := NewDatabase(TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	items, err := ds.GetItems(context.Background())
	if err != nil {
		t.Fatalf("GetItems error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected fresh database to be empty, got %d items", len(items))
	}
}
