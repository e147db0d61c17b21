package guardrails

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chatdemo/chatdemo-go/internal/errs"
)

// Guardrails decides whether a submission reaches the pipeline. With the
// zero configuration every non-empty input passes untouched.
type Guardrails struct {
	banned    []string
	maxLength int
}

func New(banned []string, maxLength int) *Guardrails {
	g := &Guardrails{maxLength: maxLength}
	for _, w := range banned {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			g.banned = append(g.banned, w)
		}
	}
	return g
}

// Skip reports whether the form should be rendered without calling the
// pipeline at all.
func (g *Guardrails) Skip(input string) bool {
	return input == ""
}

// CheckInput returns an InputRejected error if input contains a banned term
// or exceeds the configured length.
func (g *Guardrails) CheckInput(input string) error {
	if g.maxLength > 0 && utf8.RuneCountInString(input) > g.maxLength {
		return errs.New(errs.InputRejected, fmt.Sprintf("input longer than %d characters", g.maxLength), nil)
	}
	lower := strings.ToLower(input)
	for _, w := range g.banned {
		if strings.Contains(lower, w) {
			return errs.New(errs.InputRejected, "input violates guardrails", nil)
		}
	}
	return nil
}
