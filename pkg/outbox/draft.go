package outbox

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	frontMatterDelim = []byte("---")
	byteOrderMark    = []byte("\xef\xbb\xbf")
)

// frontMatter is the YAML header of a draft.
type frontMatter struct {
	Aspects aspectList     `yaml:"aspects"`
	Extra   map[string]any `yaml:"extra"`
}

// aspectList accepts a single scalar, a comma separated scalar or a list.
type aspectList []string

func (a *aspectList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		*a = aspectList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*a = list
		return nil
	default:
		return fmt.Errorf("line %d: aspects must be a string or a list", node.Line)
	}
}

// ParseDraft splits data into front matter and text.
//
// Front matter is present when the first line is exactly "---" and ends at
// the next such line.
func ParseDraft(data []byte) (Draft, error) {
	data = bytes.TrimPrefix(data, byteOrderMark)
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	var draft Draft
	body := data

	if header, rest, ok := splitFrontMatter(data); ok {
		var fm frontMatter
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return Draft{}, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
		}
		draft.Aspects = trimAll(fm.Aspects)
		draft.Extra = fm.Extra
		body = rest
	} else if firstLine(data) == string(frontMatterDelim) {
		return Draft{}, fmt.Errorf("%w: missing closing ---", ErrInvalidFrontMatter)
	}

	draft.Text = strings.TrimSpace(string(body))
	if draft.Text == "" {
		return Draft{}, ErrEmptyDraft
	}

	return draft, nil
}

// splitFrontMatter returns the YAML between the opening and closing
// delimiter lines and everything after the closing one.
func splitFrontMatter(data []byte) (header, rest []byte, ok bool) {
	if firstLine(data) != string(frontMatterDelim) {
		return nil, nil, false
	}

	remaining := data[len(frontMatterDelim):]
	remaining = bytes.TrimPrefix(remaining, []byte("\n"))
	offset := 0

	for offset <= len(remaining) {
		end := bytes.IndexByte(remaining[offset:], '\n')
		var line []byte
		if end < 0 {
			line = remaining[offset:]
		} else {
			line = remaining[offset : offset+end]
		}

		if string(bytes.TrimRight(line, " \t")) == string(frontMatterDelim) {
			header = remaining[:offset]
			if end < 0 {
				return header, nil, true
			}
			return header, remaining[offset+end+1:], true
		}

		if end < 0 {
			break
		}
		offset += end + 1
	}

	return nil, nil, false
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return string(bytes.TrimRight(data, " \t"))
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
