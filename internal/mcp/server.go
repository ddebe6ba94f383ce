// Package mcp exposes one mission edit session as Model Context Protocol
// tools.
package mcp

import (
	"context"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"missionkit/internal/editor"
	"missionkit/internal/store"
)

// Library is the read side of the index, used by the library tools.
type Library interface {
	Search(ctx context.Context, query, kind string) ([]store.SearchResult, error)
	ListMissions(ctx context.Context) ([]store.MissionSummary, error)
}

type Options struct {
	Version string
	// SavePath is where the save tool writes the archive. Empty keeps the
	// bytes in memory only.
	SavePath string
	// Library enables search_library and list_missions when set.
	Library Library
	Logger  *zap.Logger
}

type Server struct {
	// mu serializes tool calls; the controller is single-threaded.
	mu     sync.Mutex
	editor *editor.Controller
	opts   Options
	logger *zap.Logger
	mcp    *sdk.Server
}

func NewServer(ctrl *editor.Controller, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		editor: ctrl,
		opts:   opts,
		logger: logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "missionkit",
			Version: opts.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
