// Package markdown reads drafts submitted for SEO scoring: an optional YAML
// frontmatter block followed by a markdown body.
package markdown

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a parsed draft.
type Document struct {
	Frontmatter map[string]any
	Body        string
}

// ParseFile reads the draft at path.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits r into frontmatter and body. Frontmatter must start on the
// first line and is delimited by lines containing only "---". An unclosed
// block is treated as frontmatter running to the end of input.
func Parse(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	d := Document{Frontmatter: map[string]any{}}
	if string(peek) == "---" {
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, err
		}
		var fm strings.Builder
		for {
			line, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return Document{}, err
			}
			if strings.TrimSpace(line) == "---" {
				break
			}
			fm.WriteString(line)
			if errors.Is(err, io.EOF) {
				break
			}
		}
		if err := yaml.Unmarshal([]byte(fm.String()), &d.Frontmatter); err != nil {
			return Document{}, fmt.Errorf("markdown: frontmatter: %w", err)
		}
		if d.Frontmatter == nil {
			d.Frontmatter = map[string]any{}
		}
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return Document{}, err
	}
	d.Body = string(body)
	return d, nil
}

// Keywords returns the "keywords" frontmatter entry, given either as a YAML
// list or as a comma separated string.
func (d Document) Keywords() []string {
	var out []string
	switch v := d.Frontmatter["keywords"].(type) {
	case string:
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	case []any:
		for _, k := range v {
			if s := strings.TrimSpace(fmt.Sprint(k)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Language returns the "lang" or "language" frontmatter entry.
func (d Document) Language() string {
	for _, k := range []string{"lang", "language"} {
		if s, ok := d.Frontmatter[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Title returns the "title" frontmatter entry.
func (d Document) Title() string {
	s, _ := d.Frontmatter["title"].(string)
	return strings.TrimSpace(s)
}

// Content is the text to score: the title as a heading when present, then
// the body.
func (d Document) Content() string {
	if t := d.Title(); t != "" && !strings.HasPrefix(strings.TrimSpace(d.Body), "#") {
		return "# " + t + "\n\n" + d.Body
	}
	return d.Body
}
