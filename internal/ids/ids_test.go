package ids

import (
	"strings"
	"testing"
)

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed(" REQ ")
	if !strings.HasPrefix(id, "req_") || len(id) != len("req_")+26 {
		t.Fatalf("unexpected id: %s", id)
	}
	if got := Prefixed(""); len(got) != 26 {
		t.Fatalf("empty prefix should return bare id, got %s", got)
	}
}
