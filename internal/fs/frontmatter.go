package fs

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
)

var (
	// ErrFrontmatterInvalid indicates markdown frontmatter is malformed.
	ErrFrontmatterInvalid = errors.New("invalid YAML frontmatter")
)

// Metadata holds the key/value pairs parsed from a frontmatter block.
type Metadata map[string]any

// Get returns the value stored under key, or nil when absent.
func (m Metadata) Get(key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

// String returns the value under key formatted as a string, or "" when absent.
func (m Metadata) String(key string) string {
	v := m.Get(key)
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// Clone returns a deep copy of the metadata. Nested YAML sequences and
// mappings are copied too.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}
		return out
	case Metadata:
		return value.Clone()
	default:
		return v
	}
}

// SplitFrontmatter separates a leading frontmatter block from the body.
// A block is recognised only when the first line is exactly the delimiter;
// the body is everything after the closing delimiter line. When there is no
// opening delimiter the whole content is returned as the body.
//
// An opening delimiter with no closing line is an error wrapping
// ErrFrontmatterInvalid. The note is not treated as all frontmatter with an
// empty body.
func SplitFrontmatter(content string) (block string, body string, found bool, err error) {
	lines := strings.Split(content, "\n")
	if !isDelimiterLine(lines[0]) {
		return "", content, false, nil
	}

	for i := 1; i < len(lines); i++ {
		if isDelimiterLine(lines[i]) {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true, nil
		}
	}
	return "", "", true, fmt.Errorf("%w: missing closing delimiter", ErrFrontmatterInvalid)
}

// ParseFrontmatter decodes a frontmatter block into metadata. An empty block
// yields empty metadata.
func ParseFrontmatter(block string) (Metadata, error) {
	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(block), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrontmatterInvalid, err)
	}
	if decoded == nil {
		return Metadata{}, nil
	}
	return Metadata(decoded), nil
}

// isDelimiterLine tolerates a trailing carriage return from CRLF files.
func isDelimiterLine(line string) bool {
	return strings.TrimSuffix(line, "\r") == frontmatterDelimiter
}
