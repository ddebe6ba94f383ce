package main

import (
	"context"
	"fmt"
	"strings"

	"missionkit/internal/store"
	"missionkit/internal/store/postgres"
	"missionkit/internal/store/sqlite"
)

func openDB(ctx context.Context, dsn string) (store.Store, error) {
	switch dsnScheme(dsn) {
	case "sqlite":
		return sqlite.New(ctx, dsn)
	case "postgres", "postgresql":
		return postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database DSN %q", dsn)
	}
}

func dsnScheme(dsn string) string {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}
