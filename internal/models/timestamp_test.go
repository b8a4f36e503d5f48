package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampUnmarshalFormats(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2026-03-01T10:30:00Z"`, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"space_separated", `"2026-03-01 10:30:00"`, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"date_only", `"2026-03-01"`, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"epoch_seconds", `1767225600`, time.Unix(1767225600, 0).UTC()},
		{"epoch_millis", `1767225600000`, time.UnixMilli(1767225600000).UTC()},
	}
	for _, tc := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tc.raw), &ts); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", tc.name, err)
		}
		if !ts.Time.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, ts.Time, tc.want)
		}
	}
}

func TestTimestampUnmarshalGarbageYieldsZero(t *testing.T) {
	for _, raw := range []string{`"not-a-date"`, `""`, `null`, `"31/02/2026"`, `-5`} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("unmarshal %s should not error: %v", raw, err)
		}
		if !ts.Time.IsZero() {
			t.Errorf("unmarshal %s: expected zero time, got %v", raw, ts.Time)
		}
		if ts.SortKey() != 0 {
			t.Errorf("unmarshal %s: expected sort key 0, got %d", raw, ts.SortKey())
		}
	}
}

func TestTimestampMarshal(t *testing.T) {
	ts := NewTimestamp(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `"2026-03-01T10:30:00Z"` {
		t.Fatalf("unexpected marshal output: %s", b)
	}

	zero, err := json.Marshal(Timestamp{})
	if err != nil {
		t.Fatalf("marshal zero failed: %v", err)
	}
	if string(zero) != "null" {
		t.Fatalf("zero timestamp should marshal as null, got %s", zero)
	}
}

func TestTimestampSortKeyOrdering(t *testing.T) {
	older := ParseTimestamp("2026-01-01T00:00:00Z")
	newer := ParseTimestamp("2026-06-01T00:00:00Z")
	broken := ParseTimestamp("whenever")

	if older.SortKey() >= newer.SortKey() {
		t.Fatalf("expected older < newer: %d vs %d", older.SortKey(), newer.SortKey())
	}
	if broken.SortKey() != 0 {
		t.Fatalf("unparseable timestamp should key to 0, got %d", broken.SortKey())
	}
}
