// Package content retrieves archived pages as plain text for scenario tagging
// and keeps a copy of every text it hands out.
package content

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/wayback-journey/internal/fetcher/colly"
)

// PageGetter fetches a single page.
type PageGetter interface {
	Fetch(ctx context.Context, url string) (collyfetcher.Response, error)
}

// Error describes a page whose text could not be produced.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fetcher turns pages into whitespace-normalized text.
type Fetcher struct {
	pages    PageGetter
	maxChars int
	logger   *zap.Logger
}

// NewFetcher returns a Fetcher. A positive maxChars truncates the text to that
// many runes.
func NewFetcher(pages PageGetter, maxChars int, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{pages: pages, maxChars: maxChars, logger: logger.Named("content")}
}

// FetchPageText downloads url and returns its visible text.
func (f *Fetcher) FetchPageText(ctx context.Context, url string) (string, error) {
	resp, err := f.pages.Fetch(ctx, url)
	if err != nil {
		return "", &Error{URL: url, Message: "fetch failed", Cause: err}
	}
	text, err := ExtractText(string(resp.Body))
	if err != nil {
		return "", &Error{URL: url, Message: "parse failed", Cause: err}
	}
	text = truncateRunes(text, f.maxChars)
	f.logger.Debug("page text extracted", zap.String("url", url), zap.Int("chars", len(text)))
	return text, nil
}

// ExtractText returns the body text of an HTML document with scripts, styles
// and archive toolbar markup removed. Whitespace runs collapse to one space.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, template, #wm-ipp-base, #wm-ipp, #donato").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return strings.Join(strings.Fields(body.Text()), " "), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
