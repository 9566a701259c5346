package pagination

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffer limit 11, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)
	encoded := EncodeCursor(Cursor{Time: ts, ID: 4711})

	parsed, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !parsed.Time.Equal(ts) || parsed.ID != 4711 {
		t.Fatalf("unexpected cursor %+v", parsed)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %+v err=%v", c, err)
	}
	if _, err := ParseCursor("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
	bad := base64.StdEncoding.EncodeToString([]byte("2025-01-01T00:00:00Z|abc"))
	if _, err := ParseCursor(bad); err == nil {
		t.Fatal("expected invalid id error")
	}
}
