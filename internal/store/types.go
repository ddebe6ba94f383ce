package store

type MissionInput struct {
	Path       string
	Hash       string
	Descriptor string
	Properties map[string]any
	// Files are the archive entries no object claimed.
	Files   []FileRef
	Objects []ObjectInput
}

type ObjectInput struct {
	Position           int
	Kind               string
	Name               string
	Datafile           string
	Properties         map[string]any
	DatafileProperties map[string]any
	Files              []FileRef
	// Body is the text indexed for search.
	Body string
}

type FileRef struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

type MissionSummary struct {
	Path       string
	Hash       string
	Descriptor string
	Objects    int
}

type ObjectFilter struct {
	Kind        string
	MissionPath string
	Name        string
}

type ObjectSummary struct {
	MissionPath string
	Position    int
	Kind        string
	Name        string
	Datafile    string
}

type Object struct {
	ObjectSummary
	Properties         map[string]any
	DatafileProperties map[string]any
	Files              []FileRef
}

type SearchResult struct {
	MissionPath string
	Position    int
	Kind        string
	Name        string
	Score       float64
	Snippet     string
}
