package sop

import (
	"strings"
	"testing"
)

func exportFixture() *Document {
	return &Document{
		Title:               "My SOP Title",
		Objectives:          "What this SOP achieves",
		LoginsPrerequisites: "Required logins and tools",
		Tags:                []string{"Technical"},
		Steps: []Step{
			{ID: NewStepID(), Title: "First Step", Content: "Instructions for first step", Order: 0, Type: StepStandard},
			{ID: NewStepID(), Title: "Second Step", Content: "Instructions for second step", Order: 1, Type: StepDecision},
		},
	}
}

func TestToYAML_OmitsDefaultType(t *testing.T) {
	doc := exportFixture()
	doc.Steps[1].Type = StepStandard

	out := ToYAML(doc)
	if strings.Contains(out, "type:") {
		t.Errorf("all-standard document must not emit a type key:\n%s", out)
	}
}

func TestToYAML_EmitsDecisionTypeOnly(t *testing.T) {
	out := ToYAML(exportFixture())
	if strings.Count(out, "type: decision") != 1 {
		t.Errorf("expected exactly one decision type key:\n%s", out)
	}
	if strings.Contains(out, "type: standard") {
		t.Errorf("standard type must be omitted:\n%s", out)
	}
}

func TestToYAML_OmitsEmptyHeaderFields(t *testing.T) {
	doc := &Document{Title: "Bare", Steps: []Step{}}
	out := ToYAML(doc)
	for _, key := range []string{"objectives:", "prerequisites:", "tags:"} {
		if strings.Contains(out, key) {
			t.Errorf("empty %s must be omitted:\n%s", key, out)
		}
	}
	if !strings.Contains(out, "steps: []") {
		t.Errorf("steps key must always be present:\n%s", out)
	}
}

func TestToYAML_NeverEmitsImages(t *testing.T) {
	doc := exportFixture()
	doc.Steps[0].Images = []StepImage{{ID: NewStepID(), Data: "data:image/png;base64,AAAA", Caption: "screenshot"}}
	out := ToYAML(doc)
	if strings.Contains(out, "image") || strings.Contains(out, "base64") {
		t.Errorf("images must never be exported:\n%s", out)
	}
}

func TestToYAML_KeyOrder(t *testing.T) {
	out := ToYAML(exportFixture())
	idxTitle := strings.Index(out, "title:")
	idxSteps := strings.Index(out, "steps:")
	idxObjectives := strings.Index(out, "objectives:")
	idxPrereq := strings.Index(out, "prerequisites:")
	idxTags := strings.Index(out, "tags:")
	if !(idxTitle < idxSteps && idxSteps < idxObjectives && idxObjectives < idxPrereq && idxPrereq < idxTags) {
		t.Errorf("unexpected key order:\n%s", out)
	}
}

func TestFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My SOP: Title!", "my-sop-title.yaml"},
		{"  Weekly   Review  ", "weekly-review.yaml"},
		{"already-slugged", "already-slugged.yaml"},
		{"---", ".yaml"},
	}
	for _, c := range cases {
		if got := Filename(c.in); got != c.want {
			t.Errorf("Filename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
