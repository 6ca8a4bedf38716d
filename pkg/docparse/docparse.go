package docparse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Extractor turns a stored document into plain text plus the page numbers the
// text came from.
type Extractor interface {
	ExtractText(ctx context.Context, url, filetype string) (string, []int, error)
}

const (
	maxDocumentSize = 10 << 20
	linesPerPage    = 50
)

type HTTPExtractor struct {
	client *http.Client
}

func NewHTTPExtractor() *HTTPExtractor {
	return &HTTPExtractor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// ExtractText downloads the document and normalizes it to plain text. Pages
// are derived from form feeds when the source carries them, otherwise from a
// fixed line window.
func (e *HTTPExtractor) ExtractText(ctx context.Context, url, filetype string) (string, []int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch document failed, status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", nil, err
	}

	text := string(raw)
	switch strings.ToLower(filetype) {
	case "txt", "md", "markdown", "":
	case "html", "htm":
		text = stripHTML(text)
	default:
		return "", nil, fmt.Errorf("unsupported filetype %q", filetype)
	}

	text = strings.TrimSpace(text)
	return text, paginate(text), nil
}

var (
	tagRe    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	markupRe = regexp.MustCompile(`<[^>]+>`)
)

func stripHTML(in string) string {
	out := tagRe.ReplaceAllString(in, "")
	out = markupRe.ReplaceAllString(out, " ")
	out = strings.ReplaceAll(out, "&nbsp;", " ")
	out = strings.ReplaceAll(out, "&amp;", "&")
	out = strings.ReplaceAll(out, "&lt;", "<")
	out = strings.ReplaceAll(out, "&gt;", ">")
	return out
}

func paginate(text string) []int {
	if text == "" {
		return nil
	}

	count := strings.Count(text, "\f") + 1
	if count == 1 {
		lines := strings.Count(text, "\n") + 1
		count = (lines + linesPerPage - 1) / linesPerPage
	}

	pages := make([]int, count)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
