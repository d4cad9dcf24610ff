package extract

import (
	"bufio"
	"io"
	"strings"
)

// TextExtractor handles plain text files.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader, filename string) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out strings.Builder
	blank := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			// Collapse runs of blank lines to one paragraph break.
			blank = out.Len() > 0
			continue
		}
		if blank {
			out.WriteString("\n\n")
			blank = false
		} else if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Title: baseTitle(filename),
		Text:  out.String(),
	}, nil
}
