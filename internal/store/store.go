// Package store persists the library index: one row per mission archive and
// one per object inside it.
package store

import (
	"context"
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// UpsertMission replaces the mission at m.Path and all of its objects.
	UpsertMission(ctx context.Context, m MissionInput) error
	RemoveStaleMissions(ctx context.Context, currentPaths []string) (int64, error)
	GetMissionHashes(ctx context.Context) (map[string]string, error)

	ListMissions(ctx context.Context) ([]MissionSummary, error)
	ListObjects(ctx context.Context, filter ObjectFilter) ([]ObjectSummary, error)
	GetObject(ctx context.Context, missionPath string, position int) (*Object, error)
	Search(ctx context.Context, query, kind string) ([]SearchResult, error)

	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
