package cloudwriter

import (
	"context"
	"os"
	"path/filepath"
)

// LocalWriterFactory stores objects as files below a root directory. A file
// only appears under its final name once its writer is closed.
type LocalWriterFactory struct {
	root string
}

func NewLocalWriterFactory(root string) *LocalWriterFactory {
	return &LocalWriterFactory{root: root}
}

type localWriter struct {
	tmp  *os.File
	path string
}

func newLocalWriter(path string) (*localWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return nil, err
	}
	return &localWriter{tmp: tmp, path: path}, nil
}

func (f *LocalWriterFactory) NewWriter(_ context.Context, objectPath string) (CloudWriter, error) {
	return newLocalWriter(f.Location(objectPath))
}

func (f *LocalWriterFactory) Location(objectPath string) string {
	return filepath.Join(f.root, filepath.FromSlash(objectPath))
}

func (w *localWriter) Write(data []byte) (int, error) {
	return w.tmp.Write(data)
}

func (w *localWriter) Close() error {
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	return os.Rename(w.tmp.Name(), w.path)
}

func (w *localWriter) abort() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}

// WriteFileAtomic replaces the file at path with data. Missing parent
// directories are created and readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	w, err := newLocalWriter(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.abort()
		return err
	}
	return w.Close()
}
