package tspattern

import (
	"testing"
	"time"
)

func TestSearch_RFC3339(t *testing.T) {
	reg := DefaultRegistry()
	tests := []struct {
		name string
		line string
		want string
	}{
		{"UTC with Z", "2024-01-15T10:30:45Z some log message", "2024-01-15T10:30:45Z"},
		{"with offset", "2024-01-15T10:30:45+01:00 some log message", "2024-01-15T10:30:45+01:00"},
		{"fractional", "2024-01-15T10:30:45.123456Z msg", "2024-01-15T10:30:45.123456Z"},
		{"mid-line", "level=INFO ts=2024-06-01T12:00:00Z msg=ok", "2024-06-01T12:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, epoch, begin, end, ok := reg.Search([]byte(tt.line))
			if !ok {
				t.Fatal("expected match")
			}
			want, err := time.Parse(time.RFC3339Nano, tt.want)
			if err != nil {
				t.Fatalf("bad test want: %v", err)
			}
			if epoch != want.UnixMilli() {
				t.Errorf("epoch = %d, want %d", epoch, want.UnixMilli())
			}
			if got := tt.line[begin:end]; got != tt.want {
				t.Errorf("span = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch_CLF(t *testing.T) {
	reg := DefaultRegistry()
	line := `127.0.0.1 - - [02/Jan/2006:15:04:05 -0700] "GET / HTTP/1.1" 200 123`
	pat, epoch, begin, end, ok := reg.Search([]byte(line))
	if !ok {
		t.Fatal("expected match")
	}
	if pat.Name != "clf" {
		t.Errorf("pattern = %s, want clf", pat.Name)
	}
	want, _ := time.Parse("02/Jan/2006:15:04:05 -0700", "02/Jan/2006:15:04:05 -0700")
	if epoch != want.UnixMilli() {
		t.Errorf("epoch = %d, want %d", epoch, want.UnixMilli())
	}
	if got := line[begin:end]; got != "[02/Jan/2006:15:04:05 -0700]" {
		t.Errorf("span = %q", got)
	}
}

func TestSearch_GoRuby(t *testing.T) {
	reg := DefaultRegistry()
	line := "2024/01/15 10:30:45 starting up"
	_, epoch, begin, end, ok := reg.Search([]byte(line))
	if !ok {
		t.Fatal("expected match")
	}
	want, _ := time.Parse("2006/01/02 15:04:05", "2024/01/15 10:30:45")
	if epoch != want.UnixMilli() {
		t.Errorf("epoch mismatch")
	}
	if got := line[begin:end]; got != "2024/01/15 10:30:45" {
		t.Errorf("span = %q", got)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	reg := DefaultRegistry()
	_, _, _, _, ok := reg.Search([]byte("no timestamp here at all"))
	if ok {
		t.Error("expected no match")
	}
}

func TestSearch_FirstFitOrder(t *testing.T) {
	// A line that could plausibly be read by more than one recognizer should
	// resolve to the first pattern in declared order that actually matches.
	reg := DefaultRegistry()
	line := "2024-01-15T10:30:45Z Jan 5 15:04:02 trailing"
	pat, _, _, _, ok := reg.Search([]byte(line))
	if !ok {
		t.Fatal("expected match")
	}
	if pat.Name != "rfc3339" {
		t.Errorf("pattern = %s, want rfc3339 (declared first)", pat.Name)
	}
}

func TestParseWith(t *testing.T) {
	reg := DefaultRegistry()
	rfc3339 := DefaultRegistry().patterns[0]
	line := "2024-01-15T10:30:45Z msg"
	epoch, begin, end, ok := reg.ParseWith(rfc3339, []byte(line))
	if !ok {
		t.Fatal("expected match")
	}
	if begin != 0 || end != len("2024-01-15T10:30:45Z") {
		t.Errorf("span = [%d,%d)", begin, end)
	}
	want, _ := time.Parse(time.RFC3339Nano, "2024-01-15T10:30:45Z")
	if epoch != want.UnixMilli() {
		t.Errorf("epoch mismatch")
	}
}
