package sop

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// exportStep mirrors yamlStep but omits the type key for standard steps, so
// exported documents stay minimal. The parser re-defaults it on import.
type exportStep struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Type    string `yaml:"type,omitempty"`
}

// Key order here is the canonical export order: title, steps, then the
// conditionally-present header fields.
type exportDoc struct {
	Title         string       `yaml:"title"`
	Steps         []exportStep `yaml:"steps"`
	Objectives    string       `yaml:"objectives,omitempty"`
	Prerequisites string       `yaml:"prerequisites,omitempty"`
	Tags          []string     `yaml:"tags,omitempty"`
}

// ToYAML renders a Document as canonical YAML. It is pure and total: a
// malformed document (missing titles, nil steps) degrades to empty fields
// rather than failing. Step images are never emitted — they are edit-time-only
// enrichments with no YAML representation, so a re-imported export drops them.
func ToYAML(doc *Document) string {
	out := exportDoc{
		Title: doc.Title,
		Steps: make([]exportStep, 0, len(doc.Steps)),
	}
	for _, st := range doc.Steps {
		es := exportStep{Title: st.Title, Content: st.Content}
		if st.Type != "" && st.Type != StepStandard {
			es.Type = string(st.Type)
		}
		out.Steps = append(out.Steps, es)
	}
	out.Objectives = doc.Objectives
	out.Prerequisites = doc.LoginsPrerequisites
	if len(doc.Tags) > 0 {
		out.Tags = doc.Tags
	}

	b, err := yaml.Marshal(out)
	if err != nil {
		return ""
	}
	return string(b)
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives a filesystem-safe export filename from a title:
// lowercased, non-alphanumeric runs folded to single hyphens, trimmed,
// with the fixed .yaml extension.
func Filename(title string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	return slug + ".yaml"
}
