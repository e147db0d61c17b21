package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chatdemo/chatdemo-go/internal/provider"
)

const (
	// SystemInstruction is the fixed system message of the default template.
	SystemInstruction = "You are a helpful assistant. Please repond to the user queries"
	// QuestionTemplate is the user message of the default template.
	QuestionTemplate = "Question:{question}"
	// QuestionVar is the single variable the default template expects.
	QuestionVar = "question"
)

// MessageTemplate is one role/template pair.
type MessageTemplate struct {
	Role     string `yaml:"role"`
	Template string `yaml:"template"`
}

type segment struct {
	text     string
	variable bool
}

type message struct {
	role     provider.Role
	segments []segment
}

// ChatTemplate renders a fixed message skeleton with runtime values. It is
// immutable after construction and safe for concurrent use.
type ChatTemplate struct {
	messages []message
	vars     []string
}

// Default returns the built-in system + question template.
func Default() *ChatTemplate {
	t, err := FromMessages(
		MessageTemplate{Role: "system", Template: SystemInstruction},
		MessageTemplate{Role: "user", Template: QuestionTemplate},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMessages parses every template up front so Format can only fail on
// missing values.
func FromMessages(msgs ...MessageTemplate) (*ChatTemplate, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("prompt: template has no messages")
	}
	t := &ChatTemplate{}
	seen := map[string]bool{}
	for i, m := range msgs {
		role, err := parseRole(m.Role)
		if err != nil {
			return nil, fmt.Errorf("prompt: message %d: %w", i, err)
		}
		segs, err := parse(m.Template)
		if err != nil {
			return nil, fmt.Errorf("prompt: message %d: %w", i, err)
		}
		for _, s := range segs {
			if s.variable && !seen[s.text] {
				seen[s.text] = true
				t.vars = append(t.vars, s.text)
			}
		}
		t.messages = append(t.messages, message{role: role, segments: segs})
	}
	return t, nil
}

func parseRole(r string) (provider.Role, error) {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "system":
		return provider.RoleSystem, nil
	case "user", "human":
		return provider.RoleUser, nil
	case "assistant", "ai":
		return provider.RoleAssistant, nil
	}
	return "", fmt.Errorf("unknown role %q", r)
}

// parse splits s into literal and variable segments. {name} is a variable,
// {{ and }} are literal braces.
func parse(s string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at offset %d", i)
			}
			name := s[i+1 : i+1+end]
			if !validName(name) {
				return nil, fmt.Errorf("invalid variable name %q at offset %d", name, i)
			}
			flush()
			segs = append(segs, segment{text: name, variable: true})
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// InputVariables lists variable names in first-seen order.
func (t *ChatTemplate) InputVariables() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

// Format substitutes vars into every message. Values are inserted literally.
func (t *ChatTemplate) Format(vars map[string]string) ([]provider.Message, error) {
	for _, name := range t.vars {
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("prompt: missing variable %q", name)
		}
	}
	out := make([]provider.Message, 0, len(t.messages))
	for _, m := range t.messages {
		var b strings.Builder
		for _, s := range m.segments {
			if s.variable {
				b.WriteString(vars[s.text])
			} else {
				b.WriteString(s.text)
			}
		}
		out = append(out, provider.Message{Role: m.role, Content: b.String()})
	}
	return out, nil
}

type document struct {
	Messages []MessageTemplate `yaml:"messages"`
}

// Parse reads a YAML document of the form
//
//	messages:
//	  - role: system
//	    template: You are a helpful assistant.
//	  - role: user
//	    template: "Question:{question}"
func Parse(data []byte) (*ChatTemplate, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("prompt: decode yaml: %w", err)
	}
	return FromMessages(doc.Messages...)
}

func Load(path string) (*ChatTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return Parse(data)
}
