package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type codeRow struct {
	ID   string `gorm:"primaryKey"`
	Code string
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&codeRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDBCarriesContext(t *testing.T) {
	conn := openDB(t)
	base := NewBase(conn)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "req-1")
	if got := base.DB(ctx).Statement.Context; got != ctx {
		t.Fatalf("expected context to flow through, got %v", got)
	}
	if base.DB(nil) != conn {
		t.Fatal("expected nil context to return the raw connection")
	}
}

func TestBaseExists(t *testing.T) {
	conn := openDB(t)
	base := NewBase(conn)
	ctx := context.Background()

	if err := conn.Create(&codeRow{ID: "1", Code: "QK7M2P"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	found, err := base.Exists(ctx, &codeRow{}, "code", "QK7M2P")
	if err != nil || !found {
		t.Fatalf("expected code to exist, got %v %v", found, err)
	}
	found, err = base.Exists(ctx, &codeRow{}, "code", "ZZZZZZ")
	if err != nil || found {
		t.Fatalf("expected code to be free, got %v %v", found, err)
	}
}

func TestOneReturnsRowOrNotFound(t *testing.T) {
	conn := openDB(t)
	if err := conn.Create(&codeRow{ID: "7", Code: "HX4R9T"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	row, err := One[codeRow](conn, "code = ?", "HX4R9T")
	if err != nil || row.ID != "7" {
		t.Fatalf("expected row 7, got %+v %v", row, err)
	}
	if _, err := One[codeRow](conn, "code = ?", "nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
