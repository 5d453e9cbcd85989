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
	"hash/crc32"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/raftapply/cluster/types"
)

func chunk(name string, content []byte) SnapshotChunk {
	return SnapshotChunk{
		SnapshotID: "1-10-1700000000000",
		TotalCount: 2,
		ChunkName:  name,
		Checksum:   crc32.ChecksumIEEE(content),
		Content:    content,
	}
}

func TestVerify(t *testing.T) {
	c := chunk("state.bin", []byte("some state"))
	require.NoError(t, c.Verify())

	c.Content = []byte("some statE")
	assert.ErrorIs(t, c.Verify(), types.ErrChecksumMismatch)
}

func TestManifestRoundTrip(t *testing.T) {
	chunks := []SnapshotChunk{chunk("meta.json", []byte("{}")), chunk("state.bin", []byte("abc"))}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManifest(chunks[0].SnapshotID, 10, 1, []SnapshotChunk{chunks[1], chunks[0]}, created)
	assert.Equal(t, "meta.json", m.Chunks[0].Name)
	assert.Equal(t, int64(3), m.Chunks[1].Size)

	dir := t.TempDir()
	require.NoError(t, m.WriteToDisk(dir))

	got, err := ReadFromDisk(m.SnapshotID, dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	for _, c := range chunks {
		assert.True(t, got.Matches(c))
	}
	tampered := chunks[1]
	tampered.Checksum++
	assert.False(t, got.Matches(tampered))
	assert.False(t, got.Matches(chunk("other.bin", nil)))
}

func TestReadMissingManifest(t *testing.T) {
	_, err := ReadFromDisk("nope", t.TempDir())
	assert.Error(t, err)
}
