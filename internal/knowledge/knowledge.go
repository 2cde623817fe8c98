// Package knowledge serves the study's support knowledge base: a
// directory of markdown articles rendered to HTML and arranged as a
// browsable tree. The raw markdown also grounds the chat assistant's
// system prompt.
package knowledge

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/tud-hci/ticketlab/internal/model"
)

// Document is one article in source form.
type Document struct {
	ID       string
	Title    string
	Markdown string
}

// Service holds the parsed knowledge base. Articles are read once at
// construction; the tree is immutable afterwards.
type Service struct {
	tree []model.KnowledgeNode
	docs []Document
}

// The parser configuration never changes and goldmark is safe to share
// across goroutines, so one instance serves all renders.
var (
	markdownOnce     sync.Once
	markdownInstance goldmark.Markdown
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdownInstance
}

// New builds the knowledge base from all markdown files under root.
// Directories become category nodes; files become content nodes.
func New(fsys fs.FS) (*Service, error) {
	s := &Service{}
	tree, err := s.readDir(fsys, ".", "")
	if err != nil {
		return nil, err
	}
	s.tree = tree
	return s, nil
}

func (s *Service) readDir(fsys fs.FS, dir, parentID string) ([]model.KnowledgeNode, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", dir, err)
	}

	var nodes []model.KnowledgeNode
	for _, entry := range entries {
		full := path.Join(dir, entry.Name())
		nodeID := entry.Name()
		if parentID != "" {
			nodeID = parentID + "/" + entry.Name()
		}

		if entry.IsDir() {
			children, err := s.readDir(fsys, full, nodeID)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, model.KnowledgeNode{
				ID:       nodeID,
				Title:    formatTitle(entry.Name()),
				Children: children,
			})
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		raw, err := fs.ReadFile(fsys, full)
		if err != nil {
			return nil, fmt.Errorf("knowledge: read %s: %w", full, err)
		}
		title, body, err := splitFrontMatter(raw)
		if err != nil {
			return nil, fmt.Errorf("knowledge: parse %s: %w", full, err)
		}
		if title == "" {
			title = extractHeading(body)
		}
		if title == "" {
			title = strings.TrimSuffix(entry.Name(), ".md")
		}
		title = formatTitle(title)

		var rendered bytes.Buffer
		if err := markdown().Convert([]byte(body), &rendered); err != nil {
			return nil, fmt.Errorf("knowledge: render %s: %w", full, err)
		}

		nodes = append(nodes, model.KnowledgeNode{
			ID:      nodeID,
			Title:   title,
			Content: rendered.String(),
		})
		s.docs = append(s.docs, Document{ID: nodeID, Title: title, Markdown: body})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Title < nodes[j].Title })
	return nodes, nil
}

// Tree returns the hierarchical knowledge base.
func (s *Service) Tree() []model.KnowledgeNode {
	return s.tree
}

// Documents returns all articles in source form, for prompt grounding.
func (s *Service) Documents() []Document {
	return s.docs
}

// Node returns the node with the given id, if present.
func (s *Service) Node(id string) (model.KnowledgeNode, bool) {
	for _, n := range flatten(s.tree) {
		if n.ID == id {
			return n, true
		}
	}
	return model.KnowledgeNode{}, false
}

// Search returns every node whose title or content contains query,
// case-insensitively.
func (s *Service) Search(query string) []model.KnowledgeNode {
	q := strings.ToLower(query)
	var hits []model.KnowledgeNode
	for _, n := range flatten(s.tree) {
		if strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q) {
			hits = append(hits, n)
		}
	}
	return hits
}

func flatten(nodes []model.KnowledgeNode) []model.KnowledgeNode {
	var out []model.KnowledgeNode
	for _, n := range nodes {
		out = append(out, n)
		out = append(out, flatten(n.Children)...)
	}
	return out
}

// frontMatter is the YAML header an article may carry.
type frontMatter struct {
	Title string `yaml:"title"`
}

// splitFrontMatter separates an optional leading YAML block from the
// markdown body.
func splitFrontMatter(raw []byte) (title, body string, err error) {
	text := string(raw)
	if !strings.HasPrefix(text, "---\n") {
		return "", text, nil
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", text, nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return "", "", fmt.Errorf("front matter: %w", err)
	}
	body = strings.TrimPrefix(rest[end+len("\n---"):], "\n")
	return fm.Title, body, nil
}

var headingRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

func extractHeading(markdown string) string {
	if m := headingRe.FindStringSubmatch(markdown); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// formatTitle turns a file or directory name into a display title.
func formatTitle(name string) string {
	name = strings.TrimSuffix(name, ".md")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
