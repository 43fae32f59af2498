// Package gcs provides a checkpoint backend backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

// Config captures the parameters required to reach the bucket.
type Config struct {
	Bucket string
	// Prefix is prepended to every object name.
	Prefix string
}

// Backend stores checkpoint objects in a GCS bucket. Uploads only become
// visible once the writer is closed, which gives atomic replacement.
type Backend struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed checkpoint backend.
func New(client *storage.Client, cfg Config) (*Backend, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Read downloads the object or returns checkpoint.ErrNotFound.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Write uploads data under name.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	writer := b.object(name).NewWriter(ctx)
	writer.ContentType = contentType(name)
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Exists reports whether the object is present.
func (b *Backend) Exists(ctx context.Context, name string) (bool, error) {
	_, err := b.object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("object attrs: %w", err)
	}
	return true, nil
}

// List returns object names below prefix, relative to the configured prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: b.fullName(prefix)})
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		out = append(out, b.relName(attrs.Name))
	}
	return out, nil
}

// DeletePrefix deletes every object below prefix.
func (b *Backend) DeletePrefix(ctx context.Context, prefix string) error {
	names, err := b.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		err := b.object(name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	return nil
}

// URI returns the gs:// location of name.
func (b *Backend) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", b.bucket, b.fullName(name))
}

func (b *Backend) object(name string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.fullName(name))
}

func (b *Backend) fullName(name string) string {
	if b.prefix == "" {
		return name
	}
	full := path.Join(b.prefix, name)
	if strings.HasSuffix(name, "/") {
		full += "/"
	}
	return full
}

func (b *Backend) relName(full string) string {
	if b.prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, b.prefix+"/")
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
