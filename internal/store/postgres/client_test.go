package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestNew_BadDSN(t *testing.T) {
	_, err := New(context.Background(), "postgres://index@localhost:notaport/missions")
	if err == nil || !strings.Contains(err.Error(), "parsing mission index DSN") {
		t.Fatalf("expected DSN parse error, got %v", err)
	}
}
