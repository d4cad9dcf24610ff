package sop

import (
	"errors"
	"strings"
	"testing"
)

const legacyDoc = `SOP: My SOP Title

Objectives and Outcomes
Achieve great things.

Logins and Prerequisites
Need admin access.

SOP Content
Step 1 — First Step
Instructions for first step.

Step 2 — Second Step
Instructions for second step.

Indicators of Success
(ignored)
`

func TestParseText_LegacyDocument(t *testing.T) {
	doc := ParseText(legacyDoc)

	if doc.Title != "My SOP Title" {
		t.Errorf("expected title %q, got %q", "My SOP Title", doc.Title)
	}
	if doc.Objectives != "Achieve great things." {
		t.Errorf("unexpected objectives: %q", doc.Objectives)
	}
	if doc.LoginsPrerequisites != "Need admin access." {
		t.Errorf("unexpected prerequisites: %q", doc.LoginsPrerequisites)
	}
	if len(doc.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(doc.Steps))
	}

	want := []struct{ title, content string }{
		{"First Step", "Instructions for first step."},
		{"Second Step", "Instructions for second step."},
	}
	for i, w := range want {
		st := doc.Steps[i]
		if st.Title != w.title {
			t.Errorf("step[%d]: expected title %q, got %q", i, w.title, st.Title)
		}
		if st.Content != w.content {
			t.Errorf("step[%d]: expected content %q, got %q", i, w.content, st.Content)
		}
		if st.Order != i {
			t.Errorf("step[%d]: expected order %d, got %d", i, i, st.Order)
		}
		if st.Type != StepStandard {
			t.Errorf("step[%d]: expected standard type, got %q", i, st.Type)
		}
		if st.ID == "" {
			t.Errorf("step[%d]: missing id", i)
		}
	}
}

func TestParseText_StopMarkerTruncates(t *testing.T) {
	input := strings.Join([]string{
		"SOP: Truncated",
		"SOP Content",
		"Step 1 — Kept",
		"kept line",
		"Indicators of Success",
		"Step 2 — Dropped",
		"dropped line",
	}, "\n")

	doc := ParseText(input)
	if len(doc.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(doc.Steps))
	}
	if doc.Steps[0].Title != "Kept" {
		t.Errorf("expected step %q, got %q", "Kept", doc.Steps[0].Title)
	}
	if strings.Contains(doc.Steps[0].Content, "dropped") {
		t.Errorf("content after stop marker leaked into step: %q", doc.Steps[0].Content)
	}
}

func TestParseText_HyphenAndEmDashSeparators(t *testing.T) {
	input := "SOP Content\nStep 1 - Hyphen Step\none\nStep 2 — Dash Step\ntwo"
	doc := ParseText(input)
	if len(doc.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(doc.Steps))
	}
	if doc.Steps[0].Title != "Hyphen Step" || doc.Steps[1].Title != "Dash Step" {
		t.Errorf("unexpected step titles: %q, %q", doc.Steps[0].Title, doc.Steps[1].Title)
	}
}

func TestParseText_BlankLinesPreservedInsideStep(t *testing.T) {
	input := "SOP Content\nStep 1 — Multi\npara one\n\npara two"
	doc := ParseText(input)
	if len(doc.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(doc.Steps))
	}
	if doc.Steps[0].Content != "para one\n\npara two" {
		t.Errorf("expected paragraph break preserved, got %q", doc.Steps[0].Content)
	}
}

func TestParseText_TitleFallbackToFirstLine(t *testing.T) {
	doc := ParseText("  Onboarding Checklist  \nsome text")
	if doc.Title != "Onboarding Checklist" {
		t.Errorf("expected first-line title fallback, got %q", doc.Title)
	}
}

func TestParseText_TrailingStepWithoutBodyIsKept(t *testing.T) {
	doc := ParseText("SOP Content\nStep 1 — Lonely")
	if len(doc.Steps) != 1 {
		t.Fatalf("expected trailing step to be flushed, got %d steps", len(doc.Steps))
	}
	if doc.Steps[0].Content != "" {
		t.Errorf("expected empty content, got %q", doc.Steps[0].Content)
	}
}

func TestParseText_StepHeaderOutsideContentSectionIgnored(t *testing.T) {
	input := "Objectives and Outcomes\nStep 1 — Not A Step\nSOP Content\nStep 1 — Real\nbody"
	doc := ParseText(input)
	if len(doc.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(doc.Steps))
	}
	if doc.Steps[0].Title != "Real" {
		t.Errorf("expected %q, got %q", "Real", doc.Steps[0].Title)
	}
	if !strings.Contains(doc.Objectives, "Step 1 — Not A Step") {
		t.Errorf("step-looking line outside content should stay in objectives, got %q", doc.Objectives)
	}
}

func TestParseText_IdsRegeneratedPerParse(t *testing.T) {
	a := ParseText(legacyDoc)
	b := ParseText(legacyDoc)
	if a.Steps[0].ID == b.Steps[0].ID {
		t.Error("expected fresh step ids on every parse")
	}
}

func TestParseYAML_Document(t *testing.T) {
	input := `title: My SOP Title
objectives: What this SOP achieves
prerequisites: Required logins and tools
tags:
  - Technical
steps:
  - title: First Step
    content: Instructions for first step
  - title: Second Step
    content: Instructions for second step
    type: decision
`
	doc, err := ParseYAML(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "My SOP Title" {
		t.Errorf("unexpected title %q", doc.Title)
	}
	if doc.Objectives != "What this SOP achieves" {
		t.Errorf("unexpected objectives %q", doc.Objectives)
	}
	if doc.LoginsPrerequisites != "Required logins and tools" {
		t.Errorf("prerequisites key should map to logins_prerequisites, got %q", doc.LoginsPrerequisites)
	}
	if len(doc.Tags) != 1 || doc.Tags[0] != "Technical" {
		t.Errorf("unexpected tags %v", doc.Tags)
	}
	if len(doc.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(doc.Steps))
	}
	if doc.Steps[0].Type != StepStandard {
		t.Errorf("missing type should default to standard, got %q", doc.Steps[0].Type)
	}
	if doc.Steps[1].Type != StepDecision {
		t.Errorf("expected decision step, got %q", doc.Steps[1].Type)
	}
	for i, st := range doc.Steps {
		if st.Order != i {
			t.Errorf("step[%d]: expected order %d, got %d", i, i, st.Order)
		}
	}
}

func TestParseYAML_UnknownTypeDefaultsToStandard(t *testing.T) {
	input := "title: T\nsteps:\n  - title: S\n    content: C\n    type: branching\n"
	doc, err := ParseYAML(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Steps[0].Type != StepStandard {
		t.Errorf("unrecognized type should default to standard, got %q", doc.Steps[0].Type)
	}
}

func TestParseYAML_NotAMapping(t *testing.T) {
	if _, err := ParseYAML("- just\n- a\n- list\n"); !errors.Is(err, ErrParseFailure) {
		t.Errorf("expected ErrParseFailure for non-mapping, got %v", err)
	}
}

func TestParseYAML_MissingRequiredKeys(t *testing.T) {
	if _, err := ParseYAML("title: only a title\n"); !errors.Is(err, ErrParseFailure) {
		t.Errorf("expected ErrParseFailure for missing steps key, got %v", err)
	}
	if _, err := ParseYAML("steps: []\n"); !errors.Is(err, ErrParseFailure) {
		t.Errorf("expected ErrParseFailure for missing title key, got %v", err)
	}
}

func TestParse_ExplicitYAMLExtensionDoesNotFallBack(t *testing.T) {
	_, err := Parse("title: [broken\n", "doc.yml")
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}

func TestParse_SniffedYAMLFallsBackToPlaintext(t *testing.T) {
	// Looks like YAML but is not; must degrade to the plaintext grammar.
	input := "title: [broken yaml\nmore text"
	doc, err := Parse(input, "")
	if err != nil {
		t.Fatalf("sniffed input must not fail: %v", err)
	}
	if doc.Title != "title: [broken yaml" {
		t.Errorf("expected first-line fallback title, got %q", doc.Title)
	}
}

func TestParse_DispatchByExtension(t *testing.T) {
	doc, err := Parse("title: T\nsteps: []\n", "procedure.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "T" || len(doc.Steps) != 0 {
		t.Errorf("unexpected parse result: %+v", doc)
	}
}

func TestNormalizeOrder(t *testing.T) {
	steps := []Step{{Order: 3}, {Order: 0}, {Order: 7}}
	NormalizeOrder(steps)
	for i, st := range steps {
		if st.Order != i {
			t.Errorf("step[%d]: expected order %d, got %d", i, i, st.Order)
		}
	}
}
