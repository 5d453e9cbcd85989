//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package snapshots

import (
	"encoding/json"
	"os"
	"path"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ChunkMeta describes a chunk without its content.
type ChunkMeta struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum uint32 `json:"checksum"`
}

// Manifest lists the chunks exported for a snapshot so that a receiver can
// check it got all of them.
type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`

	SnapshotID string      `json:"snapshotId"`
	Index      uint64      `json:"index"`
	Term       uint64      `json:"term"`
	Chunks     []ChunkMeta `json:"chunks"`
}

func NewManifest(id string, index, term uint64, chunks []SnapshotChunk, createdAt time.Time) *Manifest {
	m := &Manifest{
		CreatedAt:  createdAt,
		SnapshotID: id,
		Index:      index,
		Term:       term,
		Chunks:     make([]ChunkMeta, 0, len(chunks)),
	}
	for _, c := range chunks {
		m.Chunks = append(m.Chunks, ChunkMeta{
			Name:     c.ChunkName,
			Size:     int64(len(c.Content)),
			Checksum: c.Checksum,
		})
	}
	sort.Slice(m.Chunks, func(i, j int) bool { return m.Chunks[i].Name < m.Chunks[j].Name })
	return m
}

// Matches reports whether chunk is listed with the same checksum.
func (m *Manifest) Matches(chunk SnapshotChunk) bool {
	if chunk.SnapshotID != m.SnapshotID || int(chunk.TotalCount) != len(m.Chunks) {
		return false
	}
	i := sort.Search(len(m.Chunks), func(i int) bool { return m.Chunks[i].Name >= chunk.ChunkName })
	return i < len(m.Chunks) && m.Chunks[i].Name == chunk.ChunkName &&
		m.Chunks[i].Checksum == chunk.Checksum
}

func (m *Manifest) WriteToDisk(basePath string) error {
	b, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "write manifest to disk")
	}

	manifestPath := BuildManifestPath(m.SnapshotID, basePath)

	// ensure that the export directory exists
	if err := os.MkdirAll(path.Dir(manifestPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "write manifest to disk")
	}

	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return errors.Wrap(err, "write manifest to disk")
	}

	return nil
}

func ReadFromDisk(id, basePath string) (*Manifest, error) {
	manifestPath := BuildManifestPath(id, basePath)

	contents, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest from disk")
	}

	var m Manifest
	if err := json.Unmarshal(contents, &m); err != nil {
		return nil, errors.Wrap(err,
			"failed to unmarshal manifest disk contents")
	}

	return &m, nil
}

func BuildManifestPath(id, basePath string) string {
	return path.Join(basePath, id, "manifest.json")
}
