package storage

import "io"

// SnapshotStore mirrors export bundles outside the database so a user
// always has a plain-file backup of their content.
type SnapshotStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	PutExport(data io.Reader) (string, error)
}
