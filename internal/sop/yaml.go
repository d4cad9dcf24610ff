package sop

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrParseFailure marks a YAML document that could not be decoded or did not
// have the expected mapping shape. Callers either fall back to the plaintext
// grammar (content-sniff dispatch) or surface a "check the format" message
// (explicit .yaml/.yml filename, import flows).
var ErrParseFailure = errors.New("sop parse failure")

// yamlStep is the on-disk shape of one step in the YAML grammar.
type yamlStep struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Type    string `yaml:"type"`
}

// yamlDoc is the on-disk shape of an SOP document. The prerequisites key is a
// rename of the internal logins_prerequisites field.
type yamlDoc struct {
	Title         string     `yaml:"title"`
	Objectives    string     `yaml:"objectives"`
	Prerequisites string     `yaml:"prerequisites"`
	Tags          []string   `yaml:"tags"`
	Steps         []yamlStep `yaml:"steps"`
}

// ParseYAML decodes content as a YAML SOP document. The decoded value must be
// a mapping carrying both the title and steps keys; anything else fails with
// ErrParseFailure. Step ids are generated fresh on every parse.
func ParseYAML(content string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParseFailure)
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document is not a mapping", ErrParseFailure)
	}
	if err := requireKeys(mapping, "title", "steps"); err != nil {
		return nil, err
	}

	var yd yamlDoc
	if err := mapping.Decode(&yd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	steps := make([]Step, 0, len(yd.Steps))
	for i, ys := range yd.Steps {
		steps = append(steps, Step{
			ID:      NewStepID(),
			Title:   ys.Title,
			Content: ys.Content,
			Order:   i,
			Type:    normalizeType(ys.Type),
		})
	}

	return &Document{
		Title:               yd.Title,
		Objectives:          yd.Objectives,
		LoginsPrerequisites: yd.Prerequisites,
		Tags:                yd.Tags,
		Steps:               steps,
	}, nil
}

// requireKeys checks that a mapping node carries every named key.
func requireKeys(mapping *yaml.Node, keys ...string) error {
	present := make(map[string]bool, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		present[mapping.Content[i].Value] = true
	}
	for _, k := range keys {
		if !present[k] {
			return fmt.Errorf("%w: missing required key %q", ErrParseFailure, k)
		}
	}
	return nil
}
