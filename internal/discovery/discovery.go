// Package discovery collects the same-site links reachable from an archived
// homepage snapshot.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/wayback-journey/internal/fetcher/colly"
	"github.com/JakeFAU/wayback-journey/internal/orderedset"
	"github.com/JakeFAU/wayback-journey/internal/wayback"
)

// DefaultMaxLinks bounds the links kept per anchor.
const DefaultMaxLinks = 10000

// PageGetter fetches a single page.
type PageGetter interface {
	Fetch(ctx context.Context, url string) (collyfetcher.Response, error)
}

// Config tunes link filtering.
type Config struct {
	MaxLinks int
	// ExcludePatterns are case-insensitive regular expressions; links matching
	// any of them are dropped. Nil selects DefaultExcludePatterns.
	ExcludePatterns []string
}

// DefaultExcludePatterns drops documents, media, legal boilerplate and
// non-navigational schemes.
func DefaultExcludePatterns() []string {
	return []string{
		`\.pdf$`, `\.jpg$`, `\.png$`, `\.gif$`, `\.css$`, `\.js$`,
		`/legal/`, `/privacy/`, `/terms/`, `/cookie`, `/sitemap`, `/robots`, `/favicon`,
		`^mailto:`, `^tel:`, `^javascript:`, `^#`,
	}
}

var (
	staticExtensions = map[string]struct{}{
		".css": {}, ".js": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
		".ico": {}, ".pdf": {}, ".xml": {}, ".json": {}, ".txt": {}, ".zip": {}, ".woff": {}, ".ttf": {},
	}
	structuralSegments = []string{
		"/static/", "/assets/", "/css/", "/js/", "/images/", "/img/",
		"/fonts/", "/media/", "/resources/", "/ajax/", "/api/",
	}
	embeddedScheme = regexp.MustCompile(`(?i)(/web/\d+(?:[a-z]{2}_)?/https?:)/([^/])`)
)

// Discoverer extracts links from an anchor page.
type Discoverer struct {
	fetcher  PageGetter
	maxLinks int
	exclude  []*regexp.Regexp
	logger   *zap.Logger
}

// New returns a Discoverer using fetcher for page retrieval.
func New(fetcher PageGetter, cfg Config, logger *zap.Logger) (*Discoverer, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns := cfg.ExcludePatterns
	if patterns == nil {
		patterns = DefaultExcludePatterns()
	}
	exclude := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		exclude = append(exclude, re)
	}
	maxLinks := cfg.MaxLinks
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}
	return &Discoverer{
		fetcher:  fetcher,
		maxLinks: maxLinks,
		exclude:  exclude,
		logger:   logger.Named("discovery"),
	}, nil
}

// Discover fetches anchorURL and returns the anchor followed by every distinct
// same-site link on it, in document order.
func (d *Discoverer) Discover(ctx context.Context, anchorURL string) ([]string, error) {
	resp, err := d.fetcher.Fetch(ctx, anchorURL)
	if err != nil {
		return nil, fmt.Errorf("fetch anchor: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse anchor html: %w", err)
	}

	baseRaw := resp.URL
	if baseRaw == "" {
		baseRaw = anchorURL
	}
	base, err := url.Parse(baseRaw)
	if err != nil {
		return nil, fmt.Errorf("parse anchor url: %w", err)
	}
	homeHost := wayback.Normalize(anchorURL).Host

	links := orderedset.New(anchorURL)
	doc.Find("a[href], area[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if links.Len() >= d.maxLinks {
			return false
		}
		href, _ := s.Attr("href")
		if link, ok := d.accept(base, homeHost, href); ok {
			links.Add(link)
		}
		return true
	})

	d.logger.Debug("links discovered",
		zap.String("anchor", anchorURL),
		zap.Int("count", links.Len()),
	)
	return links.Items(), nil
}

func (d *Discoverer) accept(base *url.URL, homeHost, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || d.excluded(href) {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawFragment = ""
	link := RepairEmbeddedScheme(abs.String())
	if d.excluded(link) {
		return "", false
	}

	loc := wayback.Normalize(link)
	if loc.Host != "" && homeHost != "" && loc.Host != homeHost {
		return "", false
	}
	if !Meaningful(loc.PathAndQuery) {
		return "", false
	}
	return link, true
}

func (d *Discoverer) excluded(link string) bool {
	for _, re := range d.exclude {
		if re.MatchString(link) {
			return true
		}
	}
	return false
}

// RepairEmbeddedScheme restores the double slash of an archived URL whose
// embedded scheme separator collapsed to one slash during resolution.
func RepairEmbeddedScheme(link string) string {
	return embeddedScheme.ReplaceAllString(link, "$1//$2")
}

// Meaningful reports whether a path looks like a navigable page rather than
// a static asset or an API endpoint.
func Meaningful(pathAndQuery string) bool {
	p := strings.ToLower(pathAndQuery)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if _, static := staticExtensions[path.Ext(p)]; static {
		return false
	}
	for _, seg := range structuralSegments {
		if strings.Contains(p, seg) {
			return false
		}
	}
	return true
}
