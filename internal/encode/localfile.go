package encode

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// LocalFile adapts an on-disk path to domain.File. The MIME type is guessed
// from the extension; unknown extensions fall back to the encoder default.
type LocalFile struct {
	path string
	size int64
}

func NewLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &LocalFile{path: path, size: info.Size()}, nil
}

func (f *LocalFile) Name() string { return filepath.Base(f.path) }

func (f *LocalFile) Size() int64 { return f.size }

func (f *LocalFile) ContentType() string {
	return mime.TypeByExtension(filepath.Ext(f.path))
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
