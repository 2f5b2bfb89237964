package pagination

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestEncodedCursorIsURLSafe(t *testing.T) {
	for i := 0; i < 20; i++ {
		enc := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})
		if strings.ContainsAny(enc, "+/=") {
			t.Fatalf("cursor %q needs escaping in a query string", enc)
		}
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	if cur, err := ParseCursor("  "); err != nil || cur != nil {
		t.Fatalf("expected nil cursor for blank input, got %v %v", cur, err)
	}
	for _, bad := range []string{"not-base64!", "bm90LWpzb24", "e30"} {
		if _, err := ParseCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected invalid cursor for %q, got %v", bad, err)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit {
		t.Fatalf("expected default limit")
	}
	if NormalizeLimit(MaxLimit+50) != MaxLimit {
		t.Fatalf("expected max limit")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffered limit of 11")
	}
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestTrimBuildsNextCursorOnlyWhenMoreRows(t *testing.T) {
	base := time.Now().UTC()
	rows := []row{
		{id: uuid.New(), at: base},
		{id: uuid.New(), at: base.Add(-time.Minute)},
		{id: uuid.New(), at: base.Add(-2 * time.Minute)},
	}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Trim(rows, 2, cursorOf)
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	next, err := ParseCursor(page.NextCursor)
	if err != nil || next == nil || next.ID != rows[1].id {
		t.Fatalf("expected next cursor on second row, got %v %v", next, err)
	}

	last := Trim(rows, 5, cursorOf)
	if last.NextCursor != "" || len(last.Items) != 3 {
		t.Fatalf("expected final page without cursor, got %+v", last)
	}

	empty := Trim[row](nil, 5, cursorOf)
	if empty.Items == nil {
		t.Fatal("expected empty slice rather than nil")
	}
}
