package sop

import (
	"fmt"
	"strings"
)

// Validate checks a Document before it is persisted and returns the list of
// problems found. An empty slice means the document is storable. Parsing never
// calls this: parse output is allowed to be partial.
func Validate(doc *Document) []string {
	var problems []string

	if strings.TrimSpace(doc.Title) == "" {
		problems = append(problems, "title is required")
	}

	for i, st := range doc.Steps {
		if st.Order != i {
			problems = append(problems, fmt.Sprintf("step %d has order %d; run NormalizeOrder before saving", i, st.Order))
		}
		if strings.TrimSpace(st.Title) == "" {
			problems = append(problems, fmt.Sprintf("step %d has no title", i))
		}
		if st.Type != StepStandard && st.Type != StepDecision {
			problems = append(problems, fmt.Sprintf("step %d has unknown type %q", i, st.Type))
		}
	}

	return problems
}
