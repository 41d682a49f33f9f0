package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisDB(t *testing.T) DatabaseService {
	t.Helper()

	mr := miniredis.RunT(t)
	ds, err := NewRedisDatabase(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestRedisDatabase(t *testing.T) {
	testDatabaseService(t, newTestRedisDB)
}

func TestRedisDatabase_URLConnectionString(t *testing.T) {
	mr := miniredis.RunT(t)
	ds, err := NewDatabase(TypeRedis, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	if !ds.DoesDatabaseExist() {
		t.Fatalf("expected redis to be reachable")
	}
}

func TestRedisDatabase_DeleteRemovesIndexEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	ds, err := NewRedisDatabase(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	ctx := context.Background()
	item := newTestItem(t, "indexed", time.Now())
	if err := ds.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}
	if _, err := ds.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem error: %v", err)
	}

	if mr.Exists(redisItemKey(item.ID)) {
		t.Fatalf("expected item document to be removed")
	}
	members, err := mr.ZMembers(redisIndexKey)
	if err == nil && len(members) != 0 {
		t.Fatalf("expected index to be empty, got %v", members)
	}
}

func TestNewRedisDatabase_EmptyAddress(t *testing.T) {
	if _, err := NewRedisDatabase(""); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
