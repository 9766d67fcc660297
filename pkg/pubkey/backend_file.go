package pubkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileDocument is the on-disk layout of a FileBackend.
type fileDocument struct {
	Records map[string]Record `json:"records"`
}

// FileBackend keeps records in a single JSON document. Writes go to a
// temporary file in the same directory and are renamed into place.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a backend persisting to path. The file is created
// on first write.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, errors.New("pubkey: file backend requires a path")
	}
	return &FileBackend{path: path}, nil
}

// Path returns the document location.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Get(ctx context.Context, address string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Records[address]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *FileBackend) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Records[rec.Address] = rec
	return f.write(doc)
}

func (f *FileBackend) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(doc.Records))
	for _, rec := range doc.Records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *FileBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(&fileDocument{Records: map[string]Record{}})
}

func (f *FileBackend) read() (*fileDocument, error) {
	doc := &fileDocument{Records: map[string]Record{}}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if doc.Records == nil {
		doc.Records = map[string]Record{}
	}
	return doc, nil
}

func (f *FileBackend) write(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".pubkey-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
