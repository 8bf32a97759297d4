package redis

import "testing"

func TestPlayerKey(t *testing.T) {
	if got := PlayerKey(7, "stats"); got != "player:7:stats" {
		t.Errorf("PlayerKey = %q", got)
	}
}

func TestConnectRejectsBadURL(t *testing.T) {
	if _, err := Connect("not-a-redis-url"); err == nil {
		t.Errorf("expected an error for a malformed url")
	}
}
