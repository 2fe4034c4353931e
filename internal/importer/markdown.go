// Package importer ingests Markdown notes into the memory service so
// that existing files become embedded, deduplicated, searchable
// memories like anything stored through the MCP tools.
package importer

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParsedNote represents a single Markdown file that has been parsed.
type ParsedNote struct {
	// Content is the Markdown body with frontmatter stripped.
	Content string

	// Importance from the frontmatter "importance" field, or -1 when absent
	// (the caller decides the default).
	Importance float64

	// Category from the frontmatter "category" field.
	Category string

	// Topics from the frontmatter "topics" field. List and
	// comma-separated string forms are both accepted.
	Topics []string

	// Timestamp from the frontmatter "date" field, or zero if absent.
	Timestamp time.Time
}

// ParseNote parses one Markdown file's content into a note.
func ParseNote(content []byte) (*ParsedNote, error) {
	fm, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, err
	}

	note := &ParsedNote{
		Content:    strings.TrimSpace(body),
		Importance: extractImportance(fm),
		Category:   extractString(fm, "category"),
		Topics:     extractTopics(fm),
		Timestamp:  extractTimestamp(fm),
	}
	return note, nil
}

// splitFrontmatter separates YAML frontmatter (between --- delimiters) from
// the Markdown body. Returns an empty map and full text when no frontmatter
// is found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 {
		return map[string]interface{}{}, text, nil
	}

	// Frontmatter must start with "---" on the first line.
	if strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	// Find closing "---".
	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}

	if closeIdx == -1 {
		// No closing delimiter - treat entire file as body.
		return map[string]interface{}{}, text, nil
	}

	fmText := strings.Join(lines[1:closeIdx], "\n")
	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return map[string]interface{}{}, text, fmt.Errorf("invalid YAML frontmatter: %w", err)
	}

	body := strings.Join(lines[closeIdx+1:], "\n")
	return fm, body, nil
}

// extractImportance reads the importance field, returning -1 when the
// field is absent or unusable.
func extractImportance(fm map[string]interface{}) float64 {
	raw, ok := fm["importance"]
	if !ok {
		return -1
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return -1
}

// extractTopics reads topics from frontmatter. Handles both list and
// comma-separated string forms.
func extractTopics(fm map[string]interface{}) []string {
	raw, ok := fm["topics"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		var topics []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				topics = append(topics, s)
			}
		}
		return topics
	case string:
		if v == "" {
			return nil
		}
		var topics []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		return topics
	}
	return nil
}

// extractTimestamp reads a date field from frontmatter and attempts several
// common layouts.
func extractTimestamp(fm map[string]interface{}) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, key := range []string{"date", "created", "created_at"} {
		raw, ok := fm[key]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case time.Time:
			return v
		default:
			s = fmt.Sprintf("%v", v)
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// extractString pulls a string value from frontmatter by key.
func extractString(fm map[string]interface{}, key string) string {
	v, ok := fm[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
