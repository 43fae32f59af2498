// Package checkpoint persists per-stage, per-period pipeline documents so an
// interrupted run can resume without redoing finished work.
//
// Documents are JSON objects addressed by (stage, key) inside one namespace per
// analysis target. Every backend writes atomically: a reader observes either
// the previous document or the complete new one, never a partial write.
package checkpoint

import (
	"context"
	"errors"
)

// Stage names a pipeline step whose output is checkpointed.
type Stage string

// Checkpointed stages.
const (
	StageTaxonomy   Stage = "taxonomy"
	StageLinks      Stage = "links"
	StageClassified Stage = "classified"
	StageSelected   Stage = "selected"
	StageScenarios  Stage = "scenarios"
	StageSummary    Stage = "summary"
	StageExport     Stage = "export"
)

// RunKey is the key used for documents scoped to the whole run rather than a
// single period.
const RunKey = "run"

var (
	// ErrNotFound is returned by backends when an object does not exist.
	ErrNotFound = errors.New("checkpoint object not found")
	// ErrIncomplete marks a stored document that cannot be decoded or fails
	// its own validation. Callers treat it as absent.
	ErrIncomplete = errors.New("checkpoint document incomplete")
	// ErrInvalidKey rejects keys that could escape the stage namespace.
	ErrInvalidKey = errors.New("invalid checkpoint key")
)

// Store is the resume contract used by the pipeline.
type Store interface {
	Exists(ctx context.Context, stage Stage, key string) (bool, error)
	// Load decodes the document into dst and reports whether it was present.
	Load(ctx context.Context, stage Stage, key string, dst any) (bool, error)
	Save(ctx context.Context, stage Stage, key string, value any) error
	// Keys lists the keys stored under stage in ascending order.
	Keys(ctx context.Context, stage Stage) ([]string, error)
	// Clear removes every document of the target.
	Clear(ctx context.Context) error
}

// Backend stores opaque objects by slash-separated name. Write must be atomic.
// List and DeletePrefix take a prefix ending in "/".
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// Validator is implemented by documents that can check their own completeness
// after being loaded.
type Validator interface {
	Validate() error
}
