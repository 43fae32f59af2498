package wayback

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// DefaultPrefix is the replay prefix snapshot lines must start with.
const DefaultPrefix = "https://web.archive.org/"

var periodPattern = regexp.MustCompile(`/web/(\d{4})\d{10}`)

// Snapshot is one archived capture of a site.
type Snapshot struct {
	URL    string `json:"url"`
	Period string `json:"period"`
}

// Period extracts the four-digit year of the 14-digit capture timestamp in raw.
func Period(raw string) (string, bool) {
	m := periodPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// LoadSnapshots reads one archived URL per line. Lines that do not start with
// prefix or carry no capture timestamp are skipped. The result is deduplicated
// and stably sorted by period.
func LoadSnapshots(r io.Reader, prefix string) ([]Snapshot, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	var (
		out  []Snapshot
		seen = make(map[string]struct{})
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		period, ok := Period(line)
		if !ok {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, Snapshot{URL: line, Period: period})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Period < out[j].Period
	})
	return out, nil
}

// Anchors keeps the first snapshot of every period, preserving order. The
// anchor is the page link discovery starts from.
func Anchors(snapshots []Snapshot) []Snapshot {
	seen := make(map[string]struct{}, len(snapshots))
	out := make([]Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if _, ok := seen[s.Period]; ok {
			continue
		}
		seen[s.Period] = struct{}{}
		out = append(out, s)
	}
	return out
}
