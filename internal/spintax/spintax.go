// Package spintax resolves {option1|option2} template blocks, the notation
// used in campaign email variants. Each block is randomized independently at
// render time.
package spintax

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

var blockRe = regexp.MustCompile(`\{+([^{}]+)\}+`)

// Iteration cap guards against pathological nesting.
const maxIterations = 100

// Render resolves every spintax block in text with an independent random
// pick. Text without blocks passes through unchanged.
func Render(text string) string {
	return render(text, rand.IntN)
}

// render is Render with the index picker injected for deterministic tests.
func render(text string, intn func(int) int) string {
	result := text
	for iteration := 0; iteration < maxIterations; iteration++ {
		loc := blockRe.FindStringSubmatchIndex(result)
		if loc == nil {
			break
		}

		options := strings.Split(result[loc[2]:loc[3]], "|")
		for i := range options {
			options[i] = strings.TrimSpace(options[i])
		}

		// A leading RANDOM entry is a marker, not an option.
		if strings.EqualFold(options[0], "RANDOM") && len(options) > 1 {
			options = options[1:]
		}

		selected := options[intn(len(options))]
		result = result[:loc[0]] + selected + result[loc[1]:]
	}
	return result
}

// HasBlocks reports whether text contains at least one spintax block.
func HasBlocks(text string) bool {
	return blockRe.MatchString(text)
}
