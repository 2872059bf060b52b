package readers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var (
	frontmatterBlock = regexp.MustCompile(`(?ms)\A---\s*\n(.*?)\n?^---\s*$`)
	inlineTag        = regexp.MustCompile(`(?:^|[\s(])#([\p{L}\p{N}_/-]+)`)
	wikiLink         = regexp.MustCompile(`\[\[([^\]|#]+)`)
)

// MarkdownMeta holds everything a markdown note exposes for indexing
// beyond its raw text.
type MarkdownMeta struct {
	Tags       []string
	Aliases    []string
	Properties map[string][]string
	Headings1  []string
	Headings2  []string
	Headings3  []string
	Links      []string
}

type MarkdownParser struct {
	md goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{md: goldmark.New()}
}

// Parse extracts frontmatter, headings, tags and wikilink targets from a
// markdown document. Malformed frontmatter is skipped, not fatal.
func (p *MarkdownParser) Parse(content string) (*MarkdownMeta, error) {
	meta := &MarkdownMeta{Properties: make(map[string][]string)}

	body := content
	if m := frontmatterBlock.FindStringSubmatch(content); m != nil {
		body = content[len(m[0]):]
		if err := p.parseFrontmatter(m[1], meta); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	for _, m := range inlineTag.FindAllStringSubmatch(body, -1) {
		meta.Tags = append(meta.Tags, "#"+strings.ToLower(m[1]))
	}
	for _, m := range wikiLink.FindAllStringSubmatch(body, -1) {
		meta.Links = append(meta.Links, strings.TrimSpace(m[1]))
	}
	meta.Tags = dedupeStrings(meta.Tags)
	meta.Links = dedupeStrings(meta.Links)

	p.collectHeadings(body, meta)
	return meta, nil
}

func (p *MarkdownParser) parseFrontmatter(raw string, meta *MarkdownMeta) error {
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		return err
	}
	for key, value := range fields {
		values := stringValues(value)
		switch strings.ToLower(key) {
		case "tags", "tag":
			for _, v := range values {
				tag := strings.ToLower(strings.TrimPrefix(v, "#"))
				if tag != "" {
					meta.Tags = append(meta.Tags, "#"+tag)
				}
			}
		case "aliases", "alias":
			meta.Aliases = append(meta.Aliases, values...)
		default:
			if len(values) > 0 {
				meta.Properties[strings.ToLower(key)] = values
			}
		}
	}
	return nil
}

func (p *MarkdownParser) collectHeadings(body string, meta *MarkdownMeta) {
	source := []byte(body)
	root := p.md.Parser().Parse(text.NewReader(source))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := string(heading.Text(source))
		switch heading.Level {
		case 1:
			meta.Headings1 = append(meta.Headings1, title)
		case 2:
			meta.Headings2 = append(meta.Headings2, title)
		case 3:
			meta.Headings3 = append(meta.Headings3, title)
		}
		return ast.WalkSkipChildren, nil
	})
}

// stringValues flattens a frontmatter value into strings. Scalars become a
// single element, sequences one element each, anything else is dropped.
func stringValues(value any) []string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, ",") {
			var out []string
			for _, part := range strings.Split(v, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
		if v == "" {
			return nil
		}
		return []string{v}
	case bool:
		return []string{fmt.Sprintf("%v", v)}
	case int, int64, float64:
		return []string{fmt.Sprintf("%v", v)}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, stringValues(item)...)
		}
		return out
	default:
		return nil
	}
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
