package db

import (
	"strings"
	"testing"
)

func TestNormalizeDSN_ForcesParseTime(t *testing.T) {
	got, err := normalizeDSN("user:pass@tcp(localhost:3306)/catalog")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("expected parseTime=true in %q", got)
	}
}

func TestNormalizeDSN_RejectsGarbage(t *testing.T) {
	if _, err := normalizeDSN("tcp(::::"); err == nil {
		t.Fatalf("expected error for malformed dsn")
	}
}
