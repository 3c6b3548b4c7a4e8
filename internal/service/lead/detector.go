package lead

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

// DefaultKeywords trigger the quote form when found in the latest user turn.
var DefaultKeywords = []string{"quote", "price", "cost", "service", "shipping", "freight", "contact"}

// Detector decides when the chat should offer the lead form.
type Detector struct {
	keywords []string
}

// NewDetector lowercases keywords; an empty list falls back to DefaultKeywords.
func NewDetector(keywords []string) *Detector {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultKeywords...)
	}
	return &Detector{keywords: normalized}
}

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadDetector reads `keywords: [...]` from a YAML file. An empty path
// yields the default detector.
func LoadDetector(path string) (*Detector, error) {
	if path == "" {
		return NewDetector(nil), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}

	var file keywordFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse keyword file %s: %w", path, err)
	}
	return NewDetector(file.Keywords), nil
}

// Keywords returns the active keyword list.
func (d *Detector) Keywords() []string {
	return append([]string(nil), d.keywords...)
}

// Matches reports whether text contains any keyword, case-insensitively.
func (d *Detector) Matches(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range d.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// ShouldOffer is true when the latest message is a user turn that matches.
func (d *Detector) ShouldOffer(messages []chat.Message) bool {
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	return last.Role == chat.RoleUser && d.Matches(last.Content)
}
