package auth

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestIsAuthorized(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []int64
		chatID   int64
		expected bool
	}{
		{"empty list allows any chat", nil, 222, true},
		{"empty list allows negative group id", []int64{}, -100123, true},
		{"listed chat", []int64{111}, 111, true},
		{"unlisted chat", []int64{111}, 222, false},
		{"one of many", []int64{111, 333, -100555}, -100555, true},
		{"zero is not special", []int64{111}, 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := NewAuthenticator(test.allowed)
			if got := a.IsAuthorized(test.chatID); got != test.expected {
				t.Errorf("IsAuthorized(%d) with %v = %v, want %v", test.chatID, test.allowed, got, test.expected)
			}
		})
	}
}

func TestDeniesEveryUnlistedChat(t *testing.T) {
	a := NewAuthenticator([]int64{111, 112})
	for id := int64(-500); id <= 500; id++ {
		if id == 111 || id == 112 {
			continue
		}
		if a.IsAuthorized(id) {
			t.Fatalf("chat %d must be denied", id)
		}
	}
}

func TestAllowedCount(t *testing.T) {
	a := NewAuthenticator([]int64{111, 111, 222})
	if a.AllowedCount() != 2 {
		t.Errorf("expected 2 unique ids, got %d", a.AllowedCount())
	}
}

func TestNewAuthenticatorWarnsOnceWhenOpen(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	NewAuthenticator(nil)

	if n := strings.Count(buf.String(), "level=WARN"); n != 1 {
		t.Errorf("expected one warning for an open bot, got %d in %q", n, buf.String())
	}
}
