package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"

	"missionkit/internal/editor"
	"missionkit/internal/missiontest"
	"missionkit/internal/store"
)

type mockLibrary struct {
	searchResult []store.SearchResult
	searchErr    error
	missions     []store.MissionSummary

	lastQuery string
	lastKind  string
}

func (m *mockLibrary) Search(ctx context.Context, query, kind string) ([]store.SearchResult, error) {
	m.lastQuery = query
	m.lastKind = kind
	return m.searchResult, m.searchErr
}

func (m *mockLibrary) ListMissions(ctx context.Context) ([]store.MissionSummary, error) {
	return m.missions, nil
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	ctrl, err := editor.Load(missiontest.Archive(t), editor.Options{})
	if err != nil {
		t.Fatalf("loading mission: %v", err)
	}
	return NewServer(ctrl, opts)
}

func bookcaseID(t *testing.T, server *Server) string {
	t.Helper()
	_, output, err := server.handleListObjects(context.Background(), nil, ListObjectsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return output.Objects[0].ID
}

func TestListObjects(t *testing.T) {
	server := newTestServer(t, Options{})

	_, output, err := server.handleListObjects(context.Background(), nil, ListObjectsInput{Kind: "prop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Objects) != 2 {
		t.Fatalf("expected 2 props, got %+v", output.Objects)
	}
	if output.Objects[0].Name != "Bookcase" || output.Objects[1].Name != "Barrier Bars" {
		t.Fatalf("unexpected objects: %+v", output.Objects)
	}
}

func TestGetObject(t *testing.T) {
	server := newTestServer(t, Options{})
	id := bookcaseID(t, server)

	_, output, err := server.handleGetObject(context.Background(), nil, ObjectInput{ID: id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Kind != "Prop" || output.Name != "Bookcase" {
		t.Fatalf("unexpected object: %+v", output)
	}
	if !slices.Equal(output.Files, []string{"MG_Bookcase.obj"}) {
		t.Fatalf("unexpected files: %v", output.Files)
	}

	found := false
	for _, p := range output.Datafile {
		if p.Key == "Size" {
			found = true
			if p.Type != "float" || p.Value != 1.0 || p.Flags != "READONLY" {
				t.Fatalf("unexpected Size property: %+v", p)
			}
		}
	}
	if !found {
		t.Fatalf("expected Size in datafile, got %+v", output.Datafile)
	}
}

func TestGetObject_Mission(t *testing.T) {
	server := newTestServer(t, Options{})

	_, output, err := server.handleGetObject(context.Background(), nil, ObjectInput{ID: "mission"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Kind != "mission" || len(output.Datafile) != 0 {
		t.Fatalf("unexpected mission output: %+v", output)
	}
	if len(output.Properties) == 0 || output.Properties[0].Key != "Title" || output.Properties[0].Value != "The Hall" {
		t.Fatalf("unexpected mission properties: %+v", output.Properties)
	}
	if !slices.Contains(output.Files, "readme.txt") {
		t.Fatalf("expected leftover files, got %v", output.Files)
	}
}

func TestGetObject_InvalidID(t *testing.T) {
	server := newTestServer(t, Options{})

	if _, _, err := server.handleGetObject(context.Background(), nil, ObjectInput{ID: "bookcase"}); err == nil {
		t.Fatalf("expected error for malformed id")
	}
	if _, _, err := server.handleGetObject(context.Background(), nil, ObjectInput{ID: "00000000-0000-0000-0000-000000000001"}); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestUpdatePropertyAndUndo(t *testing.T) {
	server := newTestServer(t, Options{})
	id := bookcaseID(t, server)

	_, status, err := server.handleUpdateProperty(context.Background(), nil, UpdatePropertyInput{ID: id, Key: "Name", Value: "Shelf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.UndoDepth != 1 || status.RedoDepth != 0 {
		t.Fatalf("unexpected status after edit: %+v", status)
	}

	_, status, err = server.handleUndo(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.UndoDepth != 0 || status.RedoDepth != 1 {
		t.Fatalf("unexpected status after undo: %+v", status)
	}

	_, output, _ := server.handleGetObject(context.Background(), nil, ObjectInput{ID: id})
	if output.Name != "Bookcase" {
		t.Fatalf("expected undo to restore name, got %q", output.Name)
	}

	if _, _, err := server.handleRedo(context.Background(), nil, EmptyInput{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, output, _ = server.handleGetObject(context.Background(), nil, ObjectInput{ID: id})
	if output.Name != "Shelf" {
		t.Fatalf("expected redo to reapply name, got %q", output.Name)
	}
}

func TestUndo_Empty(t *testing.T) {
	server := newTestServer(t, Options{})

	if _, _, err := server.handleUndo(context.Background(), nil, EmptyInput{}); err == nil {
		t.Fatalf("expected error")
	}
	_, status, err := server.handleStatus(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status == "" {
		t.Fatalf("expected failed undo to leave a status")
	}
}

func TestUpdateDatafile_Mission(t *testing.T) {
	server := newTestServer(t, Options{})

	if _, _, err := server.handleUpdateDatafile(context.Background(), nil, UpdatePropertyInput{Key: "Name", Value: "x"}); err == nil {
		t.Fatalf("expected error updating the mission's datafile")
	}
}

func TestUpdateFileAndRead(t *testing.T) {
	server := newTestServer(t, Options{})
	id := bookcaseID(t, server)
	payload := []byte{0x00, 0xFF, 0x10}

	_, _, err := server.handleUpdateFile(context.Background(), nil, UpdateFileInput{
		ID:      id,
		Name:    "MG_Bookcase.obj",
		Content: base64.StdEncoding.EncodeToString(payload),
		Base64:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, file, err := server.handleReadFile(context.Background(), nil, ReadFileInput{ID: id, Name: "MG_Bookcase.obj"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !file.Base64 || file.Size != len(payload) || file.Content != base64.StdEncoding.EncodeToString(payload) {
		t.Fatalf("unexpected file output: %+v", file)
	}

	_, text, err := server.handleReadFile(context.Background(), nil, ReadFileInput{Name: "readme.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text.Base64 || text.Content != "notes" {
		t.Fatalf("unexpected leftover file output: %+v", text)
	}
}

func TestRemoveObject(t *testing.T) {
	server := newTestServer(t, Options{})
	id := bookcaseID(t, server)

	if _, _, err := server.handleRemoveObject(context.Background(), nil, ObjectInput{}); err == nil {
		t.Fatalf("expected error removing the mission")
	}

	_, status, err := server.handleRemoveObject(context.Background(), nil, ObjectInput{ID: id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Objects != 3 {
		t.Fatalf("expected 3 objects left, got %d", status.Objects)
	}
}

func TestRemoveProperty(t *testing.T) {
	server := newTestServer(t, Options{})
	id := bookcaseID(t, server)

	if _, _, err := server.handleRemoveProperty(context.Background(), nil, RemovePropertyInput{ID: id}); err == nil {
		t.Fatalf("expected error without key")
	}
	if _, _, err := server.handleRemoveProperty(context.Background(), nil, RemovePropertyInput{ID: id, Key: "Active"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := server.handleRemoveDatafile(context.Background(), nil, RemovePropertyInput{ID: id, Key: "Description"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hall.playmission")
	server := newTestServer(t, Options{SavePath: path})

	_, output, err := server.handleSave(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Path != path || output.Size == 0 {
		t.Fatalf("unexpected save output: %+v", output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved archive: %v", err)
	}
	if _, err := editor.Load(data, editor.Options{}); err != nil {
		t.Fatalf("expected saved archive to reload, got %v", err)
	}
}

func TestSave_KeepsFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hall.playmission")
	original := missiontest.Archive(t)
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	server := newTestServer(t, Options{SavePath: path})
	id := bookcaseID(t, server)

	if _, _, err := server.handleUpdateDatafile(context.Background(), nil, UpdatePropertyInput{ID: id, Key: "Object", Value: "nowhere.obj"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := server.handleSave(context.Background(), nil, EmptyInput{}); err == nil {
		t.Fatalf("expected save to fail")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Fatalf("expected archive on disk to be untouched")
	}
}

func TestSave_InMemory(t *testing.T) {
	server := newTestServer(t, Options{})

	_, output, err := server.handleSave(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Path != "" || output.Size == 0 {
		t.Fatalf("unexpected save output: %+v", output)
	}
}

func TestValidate(t *testing.T) {
	server := newTestServer(t, Options{})

	_, output, err := server.handleValidate(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.HasErrors {
		t.Fatalf("expected no errors, got %+v", output.Issues)
	}
	if len(output.Issues) != 1 || output.Issues[0].File != "readme.txt" {
		t.Fatalf("unexpected issues: %+v", output.Issues)
	}
}

func TestSearchLibrary(t *testing.T) {
	library := &mockLibrary{
		searchResult: []store.SearchResult{
			{MissionPath: "hall.playmission", Position: 0, Kind: "Prop", Name: "Bookcase", Score: 2.5},
		},
	}
	server := newTestServer(t, Options{Library: library})

	if _, _, err := server.handleSearchLibrary(context.Background(), nil, SearchLibraryInput{}); err == nil {
		t.Fatalf("expected error without query")
	}

	_, output, err := server.handleSearchLibrary(context.Background(), nil, SearchLibraryInput{Query: "book", Kind: "Prop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Results) != 1 || output.Results[0].Name != "Bookcase" {
		t.Fatalf("unexpected search output: %+v", output)
	}
	if library.lastQuery != "book" || library.lastKind != "Prop" {
		t.Fatalf("unexpected search params")
	}
}

func TestListMissions(t *testing.T) {
	library := &mockLibrary{
		missions: []store.MissionSummary{{Path: "hall.playmission", Hash: "abc", Objects: 4}},
	}
	server := newTestServer(t, Options{Library: library})

	_, output, err := server.handleListMissions(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Missions) != 1 || output.Missions[0].Objects != 4 {
		t.Fatalf("unexpected missions: %+v", output.Missions)
	}
}

func TestParseID(t *testing.T) {
	for _, raw := range []string{"", "mission", "  "} {
		id, err := parseID(raw)
		if err != nil || id != uuid.Nil {
			t.Fatalf("expected nil id for %q, got %v, %v", raw, id, err)
		}
	}
}
