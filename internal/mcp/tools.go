package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"missionkit/internal/archive"
	"missionkit/internal/editor"
	"missionkit/internal/property"
	"missionkit/internal/validate"
)

type ListObjectsInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"restrict to an object kind such as Prop or Rule"`
}

type ObjectInput struct {
	ID string `json:"id,omitempty" jsonschema:"object identifier; empty or mission for the mission itself"`
}

type UpdatePropertyInput struct {
	ID    string `json:"id,omitempty" jsonschema:"object identifier; empty or mission for the mission itself"`
	Key   string `json:"key" jsonschema:"property key"`
	Value string `json:"value" jsonschema:"new value as text; existing keys keep their type"`
}

type RemovePropertyInput struct {
	ID  string `json:"id,omitempty" jsonschema:"object identifier; empty or mission for the mission itself"`
	Key string `json:"key" jsonschema:"property key"`
}

type ReadFileInput struct {
	ID   string `json:"id,omitempty" jsonschema:"object identifier; empty or mission for the mission itself"`
	Name string `json:"name" jsonschema:"file name inside the archive"`
}

type UpdateFileInput struct {
	ID      string `json:"id,omitempty" jsonschema:"object identifier; empty or mission for the mission itself"`
	Name    string `json:"name" jsonschema:"file name inside the archive"`
	Content string `json:"content" jsonschema:"new file contents"`
	Base64  bool   `json:"base64,omitempty" jsonschema:"content is base64 encoded"`
}

type SearchLibraryInput struct {
	Query string `json:"query" jsonschema:"search terms"`
	Kind  string `json:"kind,omitempty" jsonschema:"restrict to an object kind"`
}

type EmptyInput struct{}

type ObjectSummaryOutput struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type ListObjectsOutput struct {
	Objects []ObjectSummaryOutput `json:"objects"`
}

type PropertyOutput struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
	Flags string `json:"flags,omitempty"`
}

type ObjectOutput struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Name       string           `json:"name,omitempty"`
	Properties []PropertyOutput `json:"properties"`
	Datafile   []PropertyOutput `json:"datafile,omitempty"`
	Files      []string         `json:"files"`
}

type FileOutput struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	Content string `json:"content"`
	Base64  bool   `json:"base64,omitempty"`
}

type StatusOutput struct {
	Status    string `json:"status,omitempty"`
	UndoDepth int    `json:"undo_depth"`
	RedoDepth int    `json:"redo_depth"`
	Objects   int    `json:"objects"`
}

type SaveOutput struct {
	Size int    `json:"size"`
	Path string `json:"path,omitempty"`
}

type ValidateOutput struct {
	HasErrors bool             `json:"has_errors"`
	Issues    []validate.Issue `json:"issues"`
}

type SearchResultOutput struct {
	MissionPath string  `json:"mission_path"`
	Position    int     `json:"position"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet,omitempty"`
}

type SearchLibraryOutput struct {
	Results []SearchResultOutput `json:"results"`
}

type MissionOutput struct {
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	Objects int    `json:"objects"`
}

type ListMissionsOutput struct {
	Missions []MissionOutput `json:"missions"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_objects",
		Description: "List the objects of the open mission in descriptor order",
	}, s.handleListObjects)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_object",
		Description: "Show an object's properties, datafile and files",
	}, s.handleGetObject)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "read_file",
		Description: "Read a file owned by an object or left over in the archive",
	}, s.handleReadFile)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "update_property",
		Description: "Set a descriptor property on an object or the mission",
	}, s.handleUpdateProperty)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "update_datafile",
		Description: "Set a key in an object's datafile",
	}, s.handleUpdateDatafile)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "update_file",
		Description: "Replace the contents of a file owned by an object",
	}, s.handleUpdateFile)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "remove_property",
		Description: "Remove a descriptor property from an object or the mission",
	}, s.handleRemoveProperty)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "remove_datafile",
		Description: "Remove a key from an object's datafile",
	}, s.handleRemoveDatafile)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "remove_object",
		Description: "Remove an object and the files it owns",
	}, s.handleRemoveObject)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "undo",
		Description: "Undo the most recent edit",
	}, s.handleUndo)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "redo",
		Description: "Redo the most recently undone edit",
	}, s.handleRedo)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "save",
		Description: "Serialize the mission back into an archive",
	}, s.handleSave)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "status",
		Description: "Report the last event's status and history depth",
	}, s.handleStatus)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate",
		Description: "Check the mission for broken references and naming problems",
	}, s.handleValidate)

	if s.opts.Library == nil {
		return
	}

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_library",
		Description: "Search indexed missions by object name, kind and properties",
	}, s.handleSearchLibrary)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_missions",
		Description: "List the indexed missions",
	}, s.handleListMissions)
}

func (s *Server) handleListObjects(ctx context.Context, req *sdk.CallToolRequest, input ListObjectsInput) (*sdk.CallToolResult, ListObjectsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	output := make([]ObjectSummaryOutput, 0)
	for _, obj := range s.editor.Objects() {
		if input.Kind != "" && !strings.EqualFold(obj.Kind.String(), input.Kind) {
			continue
		}
		output = append(output, ObjectSummaryOutput{
			ID:   obj.ID.String(),
			Kind: obj.Kind.String(),
			Name: obj.Name,
		})
	}
	return nil, ListObjectsOutput{Objects: output}, nil
}

func (s *Server) handleGetObject(ctx context.Context, req *sdk.CallToolRequest, input ObjectInput) (*sdk.CallToolResult, ObjectOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, ObjectOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	props, err := s.editor.Properties(id)
	if err != nil {
		return nil, ObjectOutput{}, err
	}
	files, err := s.editor.Files(id)
	if err != nil {
		return nil, ObjectOutput{}, err
	}

	out := ObjectOutput{
		ID:         validate.ContainerObject,
		Kind:       validate.ContainerObject,
		Properties: propertiesOutput(props),
		Files:      files,
	}
	if id == uuid.Nil {
		return nil, out, nil
	}

	for _, obj := range s.editor.Objects() {
		if obj.ID == id {
			out.ID = obj.ID.String()
			out.Kind = obj.Kind.String()
			out.Name = obj.Name
			if obj.Kind.HasDatafile() {
				datafile, err := s.editor.Datafile(id)
				if err != nil {
					return nil, ObjectOutput{}, err
				}
				out.Datafile = propertiesOutput(datafile)
			}
			break
		}
	}
	return nil, out, nil
}

func (s *Server) handleReadFile(ctx context.Context, req *sdk.CallToolRequest, input ReadFileInput) (*sdk.CallToolResult, FileOutput, error) {
	if input.Name == "" {
		return nil, FileOutput{}, fmt.Errorf("name is required")
	}
	id, err := parseID(input.ID)
	if err != nil {
		return nil, FileOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.editor.File(id, input.Name)
	if err != nil {
		return nil, FileOutput{}, err
	}
	out := FileOutput{Name: input.Name, Size: len(data)}
	if utf8.Valid(data) {
		out.Content = string(data)
	} else {
		out.Content = base64.StdEncoding.EncodeToString(data)
		out.Base64 = true
	}
	return nil, out, nil
}

func (s *Server) handleUpdateProperty(ctx context.Context, req *sdk.CallToolRequest, input UpdatePropertyInput) (*sdk.CallToolResult, StatusOutput, error) {
	if input.Key == "" {
		return nil, StatusOutput{}, fmt.Errorf("key is required")
	}
	id, err := parseID(input.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return s.dispatch(editor.UpdateProperty{ID: id, Key: input.Key, Value: input.Value})
}

func (s *Server) handleUpdateDatafile(ctx context.Context, req *sdk.CallToolRequest, input UpdatePropertyInput) (*sdk.CallToolResult, StatusOutput, error) {
	if input.Key == "" {
		return nil, StatusOutput{}, fmt.Errorf("key is required")
	}
	id, err := parseID(input.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return s.dispatch(editor.UpdateDatafile{ID: id, Key: input.Key, Value: input.Value})
}

func (s *Server) handleUpdateFile(ctx context.Context, req *sdk.CallToolRequest, input UpdateFileInput) (*sdk.CallToolResult, StatusOutput, error) {
	if input.Name == "" {
		return nil, StatusOutput{}, fmt.Errorf("name is required")
	}
	id, err := parseID(input.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	data := []byte(input.Content)
	if input.Base64 {
		if data, err = base64.StdEncoding.DecodeString(input.Content); err != nil {
			return nil, StatusOutput{}, fmt.Errorf("decoding content: %w", err)
		}
	}
	return s.dispatch(editor.UpdateFile{ID: id, Key: input.Name, Data: data})
}

func (s *Server) handleRemoveProperty(ctx context.Context, req *sdk.CallToolRequest, input RemovePropertyInput) (*sdk.CallToolResult, StatusOutput, error) {
	if input.Key == "" {
		return nil, StatusOutput{}, fmt.Errorf("key is required")
	}
	id, err := parseID(input.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return s.dispatch(editor.RemoveProperty{ID: id, Key: input.Key})
}

func (s *Server) handleRemoveDatafile(ctx context.Context, req *sdk.CallToolRequest, input RemovePropertyInput) (*sdk.CallToolResult, StatusOutput, error) {
	if input.Key == "" {
		return nil, StatusOutput{}, fmt.Errorf("key is required")
	}
	id, err := parseID(input.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return s.dispatch(editor.RemoveDatafile{ID: id, Key: input.Key})
}

func (s *Server) handleRemoveObject(ctx context.Context, req *sdk.CallToolRequest, input ObjectInput) (*sdk.CallToolResult, StatusOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	if id == uuid.Nil {
		return nil, StatusOutput{}, fmt.Errorf("the mission itself cannot be removed")
	}
	return s.dispatch(editor.RemoveObject{ID: id})
}

func (s *Server) handleUndo(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, StatusOutput, error) {
	return s.dispatch(editor.Undo{})
}

func (s *Server) handleRedo(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, StatusOutput, error) {
	return s.dispatch(editor.Redo{})
}

func (s *Server) handleSave(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, SaveOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.Dispatch(editor.Save{}); err != nil {
		return nil, SaveOutput{}, err
	}
	data, _ := s.editor.Saved()
	out := SaveOutput{Size: len(data)}
	if s.opts.SavePath == "" {
		return nil, out, nil
	}
	if err := archive.WriteFile(s.opts.SavePath, data); err != nil {
		return nil, SaveOutput{}, err
	}
	s.logger.Info("mission written", zap.String("path", s.opts.SavePath), zap.Int("bytes", len(data)))
	out.Path = s.opts.SavePath
	return nil, out, nil
}

func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, StatusOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, s.statusOutput(), nil
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, ValidateOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := validate.Run(s.editor.Mission())
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	return nil, ValidateOutput{HasErrors: report.HasErrors(), Issues: report.Issues}, nil
}

func (s *Server) handleSearchLibrary(ctx context.Context, req *sdk.CallToolRequest, input SearchLibraryInput) (*sdk.CallToolResult, SearchLibraryOutput, error) {
	if input.Query == "" {
		return nil, SearchLibraryOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.opts.Library.Search(ctx, input.Query, input.Kind)
	if err != nil {
		return nil, SearchLibraryOutput{}, err
	}

	output := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		output = append(output, SearchResultOutput{
			MissionPath: r.MissionPath,
			Position:    r.Position,
			Kind:        r.Kind,
			Name:        r.Name,
			Score:       r.Score,
			Snippet:     r.Snippet,
		})
	}
	return nil, SearchLibraryOutput{Results: output}, nil
}

func (s *Server) handleListMissions(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, ListMissionsOutput, error) {
	missions, err := s.opts.Library.ListMissions(ctx)
	if err != nil {
		return nil, ListMissionsOutput{}, err
	}

	output := make([]MissionOutput, 0, len(missions))
	for _, m := range missions {
		output = append(output, MissionOutput{Path: m.Path, Hash: m.Hash, Objects: m.Objects})
	}
	return nil, ListMissionsOutput{Missions: output}, nil
}

func (s *Server) dispatch(ev editor.Event) (*sdk.CallToolResult, StatusOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.Dispatch(ev); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, s.statusOutput(), nil
}

func (s *Server) statusOutput() StatusOutput {
	return StatusOutput{
		Status:    s.editor.Status(),
		UndoDepth: s.editor.UndoLen(),
		RedoDepth: s.editor.RedoLen(),
		Objects:   len(s.editor.Objects()),
	}
}

// parseID maps the tool-facing identifier onto the controller's. The mission
// itself is uuid.Nil.
func parseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == validate.ContainerObject {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid object id %q: %w", raw, err)
	}
	return id, nil
}

func propertiesOutput(props *property.Properties) []PropertyOutput {
	out := make([]PropertyOutput, 0, props.Len())
	for key, p := range props.All() {
		flags, _ := p.Flags.Get()
		out = append(out, PropertyOutput{
			Key:   key,
			Type:  p.Value.Type().String(),
			Value: p.Value.Any(),
			Flags: flags,
		})
	}
	return out
}
