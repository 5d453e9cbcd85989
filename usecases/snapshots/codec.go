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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/weaviate/raftapply/entities/diskio"
	ent "github.com/weaviate/raftapply/entities/snapshots"
)

const chunkExt = ".chunk"

func EncodeChunk(c ent.SnapshotChunk) ([]byte, error) {
	b, err := msgpack.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("encode chunk %q: %w", c.ChunkName, err)
	}
	return b, nil
}

// DecodeChunk does not verify the checksum, see SnapshotChunk.Verify.
func DecodeChunk(b []byte) (ent.SnapshotChunk, error) {
	var c ent.SnapshotChunk
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return ent.SnapshotChunk{}, fmt.Errorf("decode chunk: %w", err)
	}
	return c, nil
}

// Export writes every chunk and a manifest listing them under
// dir/<snapshot id>/.
func Export(dir string, index, term uint64, chunks []ent.SnapshotChunk) (*ent.Manifest, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("export: no chunks")
	}
	id := chunks[0].SnapshotID
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("export snapshot %q: %w", id, err)
	}
	target, err := diskio.SanitizeFilePathJoin(dir, id)
	if err != nil {
		return nil, fmt.Errorf("export snapshot %q: %w", id, err)
	}
	if err := os.MkdirAll(target, os.ModePerm); err != nil {
		return nil, fmt.Errorf("export snapshot %q: %w", id, err)
	}

	for _, c := range chunks {
		b, err := EncodeChunk(c)
		if err != nil {
			return nil, err
		}
		path, err := diskio.SanitizeFilePathJoin(target, c.ChunkName+chunkExt)
		if err != nil {
			return nil, fmt.Errorf("export chunk %q: %w", c.ChunkName, err)
		}
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return nil, fmt.Errorf("export chunk %q: %w", c.ChunkName, err)
		}
	}

	m := ent.NewManifest(id, index, term, chunks, time.Now().UTC())
	if err := m.WriteToDisk(dir); err != nil {
		return nil, err
	}
	return m, nil
}

// Import reads back an exported snapshot, verifying every chunk against
// its own checksum and the manifest.
func Import(dir, id string) (*ent.Manifest, []ent.SnapshotChunk, error) {
	m, err := ent.ReadFromDisk(id, dir)
	if err != nil {
		return nil, nil, err
	}

	chunks := make([]ent.SnapshotChunk, 0, len(m.Chunks))
	for _, meta := range m.Chunks {
		path, err := diskio.SanitizeFilePathJoin(filepath.Join(dir, id), meta.Name+chunkExt)
		if err != nil {
			return nil, nil, fmt.Errorf("import chunk %q: %w", meta.Name, err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("import chunk %q: %w", meta.Name, err)
		}
		c, err := DecodeChunk(b)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Verify(); err != nil {
			return nil, nil, err
		}
		if !m.Matches(c) {
			return nil, nil, fmt.Errorf("chunk %q does not match manifest of snapshot %q", c.ChunkName, id)
		}
		chunks = append(chunks, c)
	}
	return m, chunks, nil
}
