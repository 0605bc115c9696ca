package htmlimport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reqtrace/reqtrace/requirement"
)

// Importer converts external HTML into requirement documents on disk.
type Importer struct {
	fetcher   *Fetcher
	converter *Converter
	logger    *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		fetcher:   NewFetcher(),
		converter: NewConverter(),
		logger:    logger,
	}
}

// frontmatter is the YAML header written onto imported documents.
type frontmatter struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Level  string `yaml:"level"`
	Status string `yaml:"status"`
}

// ImportURL fetches an HTTPS page and writes it as a requirement document
// under destDir. It returns the path of the written document.
func (i *Importer) ImportURL(ctx context.Context, rawURL, destDir string, level requirement.Level) (string, error) {
	body, err := i.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	result, err := i.converter.Convert(body, rawURL)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", rawURL, err)
	}

	id := GenerateID(rawURL)
	title := result.Title
	if title == "" {
		title = rawURL
	}

	path, err := i.write(destDir, id, title, level, result.Markdown)
	if err != nil {
		return "", err
	}

	i.logger.Info("Imported requirement from URL",
		slog.String("url", rawURL),
		slog.String("id", id),
		slog.String("path", path))
	return path, nil
}

// ImportFile converts a local HTML file into a requirement document under
// destDir. It returns the path of the written document.
func (i *Importer) ImportFile(srcPath, destDir string, level requirement.Level) (string, error) {
	body, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", srcPath, err)
	}

	result, err := i.converter.Convert(body, "")
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", srcPath, err)
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	id := "DOC-" + slugify(base)
	title := result.Title
	if title == "" {
		title = base
	}

	path, err := i.write(destDir, id, title, level, result.Markdown)
	if err != nil {
		return "", err
	}

	i.logger.Info("Imported requirement from file",
		slog.String("source", srcPath),
		slog.String("id", id),
		slog.String("path", path))
	return path, nil
}

// write renders the frontmatter plus body and writes <id>.md into destDir.
func (i *Importer) write(destDir, id, title string, level requirement.Level, body string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	fm, err := yaml.Marshal(frontmatter{
		ID:     id,
		Title:  title,
		Level:  string(level),
		Status: string(requirement.StatusDraft),
	})
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")

	path := filepath.Join(destDir, id+".md")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return path, nil
}

// slugify lowercases and hyphenates a name for use in a requirement ID.
func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
