// Package index walks mission libraries and records every archive and its
// objects in a store.
package index

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"missionkit/internal/config"
	"missionkit/internal/mission"
	"missionkit/internal/store"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertMission(ctx context.Context, m store.MissionInput) error
	RemoveStaleMissions(ctx context.Context, currentPaths []string) (int64, error)
	GetMissionHashes(ctx context.Context) (map[string]string, error)
}

type Result struct {
	MissionsUpserted int
	ObjectsIndexed   int
	MissionsRemoved  int
	FilesSkipped     int
	Errors           []error
}

type Options struct {
	// Full reindexes archives whose hash has not changed.
	Full   bool
	Logger *zap.Logger
}

// Run indexes every archive under cfg.Library.Paths. Per-archive failures
// are collected in Result.Errors; only store setup errors abort the run.
func Run(ctx context.Context, cfg *config.Config, db Store, options Options) (*Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var existingHashes map[string]string
	if !options.Full {
		var err error
		existingHashes, err = db.GetMissionHashes(ctx)
		if err != nil {
			return nil, fmt.Errorf("get mission hashes: %w", err)
		}
	}

	files, err := walkArchives(cfg.Library.Paths, cfg.Library.Exclude, cfg.ArchiveExt)
	if err != nil {
		return nil, fmt.Errorf("walking library: %w", err)
	}

	result := &Result{}
	loadOpts := mission.Options{DescriptorExt: cfg.DescriptorExt, Logger: logger}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("reading %s: %w", path, err))
			continue
		}
		hash := digest(data)
		if existing, ok := existingHashes[path]; ok && existing == hash {
			result.FilesSkipped++
			continue
		}

		m, err := mission.Load(data, loadOpts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("loading %s: %w", path, err))
			continue
		}

		input, err := Describe(path, hash, m)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("describing %s: %w", path, err))
			continue
		}
		if err := db.UpsertMission(ctx, input); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("upserting %s: %w", path, err))
			continue
		}
		logger.Debug("mission indexed", zap.String("path", path), zap.Int("objects", len(input.Objects)))
		result.MissionsUpserted++
		result.ObjectsIndexed += len(input.Objects)
	}

	removed, err := db.RemoveStaleMissions(ctx, files)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("removing stale missions: %w", err))
	}
	result.MissionsRemoved = int(removed)

	logger.Info("index complete",
		zap.Int("archives", len(files)),
		zap.Int("upserted", result.MissionsUpserted),
		zap.Int("skipped", result.FilesSkipped),
		zap.Int("removed", result.MissionsRemoved),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

func walkArchives(roots, excludes []string, ext string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}
	ext = strings.ToLower(ext)

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isExcluded(path, excluded) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ext) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
