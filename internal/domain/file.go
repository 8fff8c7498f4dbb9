package domain

import "io"

// File is a file-like source supplied by the UI layer. The collection
// handed to the payload builder is expected to contain no two entries with
// identical (name, size); enforcing that is the caller's job.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}
