package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"golang.org/x/net/html"
)

const pageSeparator = "\n\n---\n\n"

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
)

var errPageTimeout = errors.New("page extraction timed out")

// extractPDF returns the pages joined with a horizontal rule so the chunker
// can prefer page boundaries. Pages without text are kept as placeholders.
func extractPDF(ctx context.Context, r *pdf.Reader, name string, pageTimeout time.Duration) (string, error) {
	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	parts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text := ""
		page := r.Page(i)
		if !page.V.IsNull() {
			content, err := protectExtract(ctx, page, pageTimeout)
			if err == nil {
				text = strings.TrimSpace(content)
			}
		}
		if text == "" {
			text = fmt.Sprintf("[Page %d: (no extractable text)]", i)
		}
		parts = append(parts, text)
	}
	return fmt.Sprintf("# Extracted PDF: %s\n\n%s\n", name, strings.Join(parts, pageSeparator)), nil
}

func protectExtract(ctx context.Context, page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			// the pdf package panics on some malformed content streams
			if p := recover(); p != nil {
				resChan <- result{err: fmt.Errorf("pdf page panic: %v", p)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func extractPDFBytes(ctx context.Context, data []byte, name string, pageTimeout time.Duration) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	return extractPDF(ctx, r, name, pageTimeout)
}

// extractDocument reads .docx, .odt and .rtf files.
func extractDocument(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract document: %w", err)
	}
	return text, nil
}

type htmlConverter struct {
	converter *md.Converter
}

func newHTMLConverter() *htmlConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &htmlConverter{converter: converter}
}

// Convert turns markup into markdown headed by the page title, or titleHint
// when the page has none. It returns the markdown and the title used.
func (c *htmlConverter) Convert(markup []byte, titleHint string) (string, string, error) {
	title := extractHTMLTitle(markup)
	if title == "" {
		title = strings.TrimSpace(titleHint)
	}

	cleaned := scriptRe.ReplaceAll(markup, nil)
	cleaned = styleRe.ReplaceAll(cleaned, nil)

	body, err := c.converter.ConvertString(string(cleaned))
	if err != nil {
		return "", title, err
	}
	if title != "" && FirstHeading(body) != title {
		body = "# " + title + "\n\n" + body
	}
	return CoerceMarkdown(body), title, nil
}

func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)
	return title
}
