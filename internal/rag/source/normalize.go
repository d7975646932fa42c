package source

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

const maxDerivedTitle = 80

// CoerceMarkdown normalises line endings, collapses runs of blank lines and
// ends the text with exactly one newline.
func CoerceMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = excessiveLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n"
}

// FirstHeading returns the text of the first markdown heading line.
func FirstHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return ""
}

// DeriveTitle is the first heading, else the first non-empty line cut to 80 runes.
func DeriveTitle(text string) string {
	if h := FirstHeading(text); h != "" {
		return h
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxDerivedTitle {
			line = string([]rune(line)[:maxDerivedTitle])
		}
		return line
	}
	return ""
}

// SafeFilename keeps the last path segment and only letters, digits and -_. ,
// with whitespace runs turned into underscores.
func SafeFilename(name, fallback string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-_. ", r) {
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), "_")
	if out == "" {
		return fallback
	}
	return out
}

func mediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".html", ".htm":
		return "text/html"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".ipynb", ".json":
		return "application/json"
	}
	return "text/plain"
}
