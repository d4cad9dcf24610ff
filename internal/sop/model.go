package sop

import "github.com/google/uuid"

// StepType tags a step as a plain instruction or a decision branch point.
type StepType string

const (
	StepStandard StepType = "standard"
	StepDecision StepType = "decision"
)

// StepImage is an edit-time image attachment on a step. Images have no YAML
// representation: they are never exported and never produced by parsing.
type StepImage struct {
	ID      string `json:"id"`
	Data    string `json:"data"` // base64 data URL
	Caption string `json:"caption,omitempty"`
}

// Step is one titled, ordered unit of an SOP.
type Step struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Order   int         `json:"order"`
	Type    StepType    `json:"type"`
	Images  []StepImage `json:"images,omitempty"`
}

// Document is the normalized in-memory form of an SOP: header metadata plus an
// ordered step sequence. It is the parser's output and the exporter's input.
// A Document is transient; persistence, record ids, and timestamps belong to
// the store layer.
type Document struct {
	Title               string   `json:"title"`
	Objectives          string   `json:"objectives"`
	LoginsPrerequisites string   `json:"logins_prerequisites"`
	Tags                []string `json:"tags,omitempty"`
	Steps               []Step   `json:"steps"`
}

// NewStepID returns a fresh opaque step identifier. Ids are ephemeral UI keys,
// regenerated on every parse; they are not content hashes.
func NewStepID() string {
	return uuid.NewString()
}

// NormalizeOrder rewrites each step's Order to its index. Call after any
// insert, delete, or reorder so that steps[i].Order == i holds.
func NormalizeOrder(steps []Step) {
	for i := range steps {
		steps[i].Order = i
	}
}

// normalizeType maps unrecognized type strings to the default.
func normalizeType(s string) StepType {
	if StepType(s) == StepDecision {
		return StepDecision
	}
	return StepStandard
}
