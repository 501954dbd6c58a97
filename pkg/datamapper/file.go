package datamapper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	boardlist "github.com/goliatone/go-boardlist"
	"github.com/goliatone/go-boardlist/pkg/clock"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// FileMapper is a DataMapper backed by a JSON document:
//
//	{"queries": [{"id": "q1", "name": "Sprint board"}]}
type FileMapper struct {
	path  string
	clock clock.Clock

	mu sync.Mutex
}

type fileDocument struct {
	Queries []boardlist.QueryEntity `json:"queries"`
}

var _ boardlist.DataMapper = (*FileMapper)(nil)

// NewFileMapper returns a mapper reading and writing path. The file is
// created on the first write.
func NewFileMapper(path string, c clock.Clock) *FileMapper {
	if c == nil {
		c = clock.Real()
	}
	return &FileMapper{path: path, clock: c}
}

// Path returns the backing file.
func (m *FileMapper) Path() string {
	return m.path
}

// Stream returns the projected query stored under id.
func (m *FileMapper) Stream(ctx context.Context, projection boardlist.Projection, id boardlist.Identifier) (*boardlist.QueryEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := projection.Validate(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.read()
	if err != nil {
		return nil, err
	}
	idx := doc.index(id)
	if idx < 0 {
		return nil, notFound(id)
	}
	return project(doc.Queries[idx], projection), nil
}

// Patch applies patch to the stored query and rewrites the file.
func (m *FileMapper) Patch(ctx context.Context, id boardlist.Identifier, patch boardlist.QueryPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if patch.Empty() {
		return ErrEmptyPatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.read()
	if err != nil {
		return err
	}
	idx := doc.index(id)
	if idx < 0 {
		return notFound(id)
	}
	patch.Apply(&doc.Queries[idx])
	doc.Queries[idx].Revision = uuid.NewString()
	doc.Queries[idx].UpdatedAt = m.clock.Now()
	return m.write(doc)
}

// Put stores q, replacing any query with the same id.
func (m *FileMapper) Put(q boardlist.QueryEntity) error {
	if err := validateID(q.ID); err != nil {
		return err
	}
	if q.Revision == "" {
		q.Revision = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := m.read()
	if err != nil {
		return err
	}
	if idx := doc.index(q.ID); idx >= 0 {
		doc.Queries[idx] = q
	} else {
		doc.Queries = append(doc.Queries, q)
	}
	return m.write(doc)
}

func (m *FileMapper) read() (fileDocument, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileDocument{}, nil
	}
	if err != nil {
		return fileDocument{}, fmt.Errorf("datamapper: read %s: %w", m.path, err)
	}
	var doc fileDocument
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("datamapper: decode %s: %w", m.path, err)
	}
	return doc, nil
}

func (m *FileMapper) write(doc fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("datamapper: encode %s: %w", m.path, err)
	}
	data = append(data, '\n')
	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("datamapper: create %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(m.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("datamapper: write %s: %w", m.path, err)
	}
	return nil
}

func (d fileDocument) index(id boardlist.Identifier) int {
	return slices.IndexFunc(d.Queries, func(q boardlist.QueryEntity) bool {
		return q.ID == id
	})
}
