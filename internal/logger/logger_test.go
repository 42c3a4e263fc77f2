package logger

import "testing"

func TestSanitizeKVs_RedactsCredentialKeys(t *testing.T) {
	kv := sanitizeKVs([]interface{}{
		"user_id", "abc",
		"postgres_dsn", "postgres://u:pw@host/db",
		"access_token", "ey...",
		"jwt_claims", "sub=...",
	})
	if kv[1] != "abc" {
		t.Fatalf("plain key was altered: %v", kv[1])
	}
	for _, i := range []int{3, 5, 7} {
		if kv[i] != "[REDACTED]" {
			t.Fatalf("expected kv[%d] redacted, got %v", i, kv[i])
		}
	}
}

func TestSanitizeKVs_OddTrailingKeySurvives(t *testing.T) {
	kv := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(kv) != 3 || kv[2] != "dangling" {
		t.Fatalf("unexpected result: %v", kv)
	}
}
