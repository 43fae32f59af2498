package content

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ObjectWriter stores auxiliary objects in the checkpoint namespace.
type ObjectWriter interface {
	PutObject(ctx context.Context, name string, data []byte) error
}

// Hasher derives short stable names.
type Hasher interface {
	Short(s string, n int) string
}

// Archiver keeps the text of every tagged page under pages/<period>/.
type Archiver struct {
	writer ObjectWriter
	hasher Hasher
}

// NewArchiver returns an Archiver writing through writer.
func NewArchiver(writer ObjectWriter, hasher Hasher) *Archiver {
	return &Archiver{writer: writer, hasher: hasher}
}

// ObjectName returns the object a page's text is stored under.
func (a *Archiver) ObjectName(period, url string) string {
	return path.Join("pages", period, a.hasher.Short(url, 16)+".txt")
}

// Archive stores the lowercased text of url, preceded by a source header.
func (a *Archiver) Archive(ctx context.Context, period, url, text string) error {
	var b strings.Builder
	b.WriteString("source: ")
	b.WriteString(url)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 80))
	b.WriteString("\n\n")
	b.WriteString(strings.ToLower(text))

	name := a.ObjectName(period, url)
	if err := a.writer.PutObject(ctx, name, []byte(b.String())); err != nil {
		return fmt.Errorf("archive page text: %w", err)
	}
	return nil
}
