package source

import (
	"fmt"
	"strings"
)

// ParseMarkdown parses a requirement markdown document, splitting YAML
// frontmatter from the body. A document without a frontmatter block is
// returned with an empty Frontmatter; the caller decides whether that is an
// error.
func ParseMarkdown(path string, content []byte) (*Document, error) {
	doc := &Document{
		Path:     path,
		Content:  string(content),
		BodyLine: 1,
	}

	str := string(content)
	if !strings.HasPrefix(str, "---\n") && !strings.HasPrefix(str, "---\r\n") {
		doc.Body = str
		return doc, nil
	}

	frontmatter, body, bodyLine, err := splitFrontmatter(str)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Frontmatter = frontmatter
	doc.Body = body
	doc.BodyLine = bodyLine
	return doc, nil
}

// splitFrontmatter separates the YAML frontmatter from the markdown body.
// Returns the raw YAML, the body, and the 1-based line the body starts on.
func splitFrontmatter(content string) (string, string, int, error) {
	const delimiter = "---"

	// Skip the opening delimiter and its newline.
	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		closeIdx = strings.Index(content[start:], "\r\n"+delimiter)
	}
	if closeIdx == -1 {
		return "", "", 0, fmt.Errorf("no closing frontmatter delimiter")
	}

	yamlContent := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}

	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	bodyLine := strings.Count(content[:bodyStart], "\n") + 1
	return yamlContent, body, bodyLine, nil
}
