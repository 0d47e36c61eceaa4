// Package notes loads learner-supplied context notes from disk.
package notes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"rsc.io/pdf"
)

const separator = "---\n"

// ErrFrontmatter is returned when a markdown file opens a frontmatter block
// that never closes or does not parse.
var ErrFrontmatter = errors.New("invalid frontmatter")

// Document is the text handed to the planner.
type Document struct {
	// Topic comes from the markdown frontmatter (topic, falling back to
	// title). Empty for other formats.
	Topic  string
	Text   string
	Source string
}

// Frontmatter holds the recognised keys of a notes file header.
type Frontmatter struct {
	Topic string `yaml:"topic"`
	Title string `yaml:"title"`
}

// Load reads path according to its extension: .md and .markdown have
// their frontmatter split off, .pdf is reduced to page text, anything else
// is taken verbatim.
func Load(path string) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		doc, err = loadMarkdown(path)
	case ".pdf":
		doc, err = loadPDF(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		doc = &Document{Text: string(data)}
	}
	if err != nil {
		return nil, fmt.Errorf("loading notes %s: %w", path, err)
	}
	doc.Text = strings.TrimSpace(doc.Text)
	doc.Source = path
	return doc, nil
}

func loadMarkdown(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta, body, err := SplitFrontmatter(string(data))
	if err != nil {
		return nil, err
	}
	topic := meta.Topic
	if topic == "" {
		topic = meta.Title
	}
	return &Document{Topic: strings.TrimSpace(topic), Text: body}, nil
}

// SplitFrontmatter separates a leading YAML block delimited by "---" lines
// from the markdown body. Content without one is returned unchanged.
func SplitFrontmatter(content string) (Frontmatter, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, separator) {
		return Frontmatter{}, content, nil
	}
	rest := strings.TrimPrefix(content, separator)

	var raw, body string
	if strings.HasPrefix(rest, separator) {
		body = strings.TrimPrefix(rest, separator)
	} else {
		idx := strings.Index(rest, "\n"+separator)
		if idx < 0 {
			if !strings.HasSuffix(rest, "\n---") {
				return Frontmatter{}, "", fmt.Errorf("%w: missing closing separator", ErrFrontmatter)
			}
			idx = len(rest) - len("\n---")
			raw = rest[:idx]
		} else {
			raw = rest[:idx]
			body = rest[idx+len("\n"+separator):]
		}
	}

	var meta Frontmatter
	if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
		return Frontmatter{}, "", fmt.Errorf("%w: %v", ErrFrontmatter, err)
	}
	return meta, body, nil
}

func loadPDF(path string) (doc *Document, err error) {
	// rsc.io/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		var parts []string
		for _, text := range p.Content().Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			parts = append(parts, text.S)
		}
		if len(parts) > 0 {
			pages = append(pages, strings.Join(parts, " "))
		}
	}
	return &Document{Text: strings.Join(pages, "\n\n")}, nil
}
