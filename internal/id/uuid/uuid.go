// Package uuid issues run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator issues version 7 UUIDs so run ids sort by start time.
type Generator struct{}

// New returns a Generator.
func New() *Generator { return &Generator{} }

// NewID returns a fresh run id.
func (*Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new run id: %w", err)
	}
	return id.String(), nil
}
