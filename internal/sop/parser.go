package sop

import (
	"regexp"
	"strings"
)

// Parse converts raw SOP text into a Document. The filename hint wins when it
// carries a YAML extension; otherwise the content is sniffed: text that looks
// like YAML is tried as YAML first and silently falls back to the legacy
// plaintext grammar when the decode fails. The plaintext path never fails.
func Parse(raw, filename string) (*Document, error) {
	if hasYAMLExt(filename) {
		return ParseYAML(raw)
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "title:") || strings.HasPrefix(trimmed, "---") {
		if doc, err := ParseYAML(raw); err == nil {
			return doc, nil
		}
	}

	return ParseText(raw), nil
}

func hasYAMLExt(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

// section tracks which buffer the plaintext state machine is filling.
type section int

const (
	secNone section = iota
	secObjectives
	secLogins
	secContent
)

// The legacy corpus uses either a hyphen or an em dash after the step number.
// Exactly this pair; broader matching could capture ordinary lines as headers.
var stepHeaderRe = regexp.MustCompile(`^Step\s+(\d+)\s*[—-]\s*(.+)$`)

// textState accumulates the plaintext grammar's buffers while folding over
// lines. All state is local to one Parse call.
type textState struct {
	title      string
	objectives strings.Builder
	logins     strings.Builder
	section    section

	stepTitle   string
	stepPending bool
	stepLines   []string
	steps       []Step
}

// ParseText runs the legacy plaintext grammar. It is total: malformed input
// degrades to a partial (possibly empty) Document rather than an error.
func ParseText(raw string) *Document {
	lines := strings.Split(raw, "\n")
	st := &textState{}

	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)

		if strings.HasPrefix(line, "SOP:") {
			st.title = strings.TrimSpace(strings.TrimPrefix(line, "SOP:"))
			continue
		}

		switch {
		case line == "Objectives and Outcomes":
			st.section = secObjectives
			continue
		case line == "Logins and Prerequisites":
			st.section = secLogins
			continue
		case strings.HasPrefix(line, "SOP Content"):
			st.section = secContent
			continue
		case line == "Indicators of Success":
			// Stop marker: everything after is ignored.
			return st.finish(lines)
		}

		if m := stepHeaderRe.FindStringSubmatch(line); m != nil && st.section == secContent {
			st.flushStep()
			st.stepTitle = strings.TrimSpace(m[2])
			st.stepPending = true
			st.stepLines = nil
			continue
		}

		if line == "" {
			// Preserve blank lines inside an accumulating buffer so that
			// multi-paragraph text keeps its breaks.
			switch st.section {
			case secObjectives:
				if st.objectives.Len() > 0 {
					st.objectives.WriteString("\n")
				}
			case secLogins:
				if st.logins.Len() > 0 {
					st.logins.WriteString("\n")
				}
			case secContent:
				if len(st.stepLines) > 0 {
					st.stepLines = append(st.stepLines, "")
				}
			}
			continue
		}

		switch st.section {
		case secObjectives:
			if st.objectives.Len() > 0 {
				st.objectives.WriteString("\n")
			}
			st.objectives.WriteString(line)
		case secLogins:
			if st.logins.Len() > 0 {
				st.logins.WriteString("\n")
			}
			st.logins.WriteString(line)
		case secContent:
			if st.stepPending {
				st.stepLines = append(st.stepLines, line)
			}
		}
	}

	return st.finish(lines)
}

// flushStep finalizes the pending step, if any, and appends it in order.
// A pending title with no body still becomes a step with empty content.
func (st *textState) flushStep() {
	if !st.stepPending {
		return
	}
	st.steps = append(st.steps, Step{
		ID:      NewStepID(),
		Title:   st.stepTitle,
		Content: strings.TrimSpace(strings.Join(st.stepLines, "\n")),
		Order:   len(st.steps),
		Type:    StepStandard,
	})
	st.stepPending = false
	st.stepTitle = ""
	st.stepLines = nil
}

func (st *textState) finish(lines []string) *Document {
	st.flushStep()

	title := st.title
	if title == "" && len(lines) > 0 {
		title = strings.TrimSpace(lines[0])
	}

	return &Document{
		Title:               title,
		Objectives:          st.objectives.String(),
		LoginsPrerequisites: st.logins.String(),
		Steps:               st.steps,
	}
}
