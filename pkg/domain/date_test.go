package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSONCalendarAndTimestamp(t *testing.T) {
	cases := []struct {
		name string
		in   Date
		want string
	}{
		{"calendar", CalendarDate(time.Date(2024, 3, 9, 17, 4, 0, 0, time.UTC)), `"2024-03-09"`},
		{"timestamp", NewDate(time.Date(2024, 3, 9, 17, 4, 5, 0, time.UTC)), `"2024-03-09T17:04:05Z"`},
		{"zero", Date{}, `""`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(raw) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, raw)
			}
			var back Date
			if err := json.Unmarshal(raw, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !back.Equal(tc.in.Time) {
				t.Fatalf("round trip mismatch: %v vs %v", back, tc.in)
			}
		})
	}
}

func TestDateUnmarshalAcceptsBrowserTimestamps(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-05-01T10:30:00.123Z"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.May || d.Nanosecond() != 123000000 {
		t.Fatalf("unexpected parse result %v", d)
	}
	if err := json.Unmarshal([]byte(`null`), &d); err != nil || !d.IsZero() {
		t.Fatalf("expected null to reset date, got %v err=%v", d, err)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &d); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if err := json.Unmarshal([]byte(`42`), &d); err == nil {
		t.Fatalf("expected non-string error")
	}
}

func TestCalendarDateUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	d := CalendarDate(time.Date(2024, 1, 1, 1, 0, 0, 0, loc))
	if d.String() != "2023-12-31" {
		t.Fatalf("expected UTC calendar day, got %s", d)
	}
}
