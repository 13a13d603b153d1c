// Package archive keeps a copy of every rendered gate pass document outside the database.
package archive

import (
	"context"
	"path"
)

// Archiver stores rendered documents under a key.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) error
}

// DocumentKey is the object key for a pass document, e.g. gatepasses/S101/GP-7K2MQX9A.pdf.
func DocumentKey(prefix, studentID, code string) string {
	return path.Join(prefix, studentID, code+".pdf")
}

// Noop discards documents (used when no bucket is configured).
type Noop struct{}

func (Noop) Put(ctx context.Context, key string, data []byte) error {
	return nil
}
