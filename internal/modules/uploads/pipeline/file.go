package pipeline

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// File is the content selected for upload.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

type diskFile struct {
	path        string
	size        int64
	contentType string
}

// OpenFile describes the file at path. The content type is guessed from the
// extension and left empty when unknown.
func OpenFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &diskFile{
		path:        path,
		size:        info.Size(),
		contentType: mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

func (f *diskFile) Name() string                 { return filepath.Base(f.path) }
func (f *diskFile) Size() int64                  { return f.size }
func (f *diskFile) ContentType() string          { return f.contentType }
func (f *diskFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type memFile struct {
	name        string
	contentType string
	data        []byte
}

// BytesFile wraps in-memory content as a File.
func BytesFile(name, contentType string, data []byte) File {
	return &memFile{name: name, contentType: contentType, data: data}
}

func (f *memFile) Name() string        { return f.name }
func (f *memFile) Size() int64         { return int64(len(f.data)) }
func (f *memFile) ContentType() string { return f.contentType }
func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
