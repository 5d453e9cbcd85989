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
	"hash/crc32"

	"github.com/weaviate/raftapply/cluster/types"
)

// SnapshotChunk carries one file of a snapshot to a replica that has fallen
// behind the compacted log. A chunk is immutable once built.
type SnapshotChunk struct {
	SnapshotID string `msgpack:"snapshotId" json:"snapshotId"`
	TotalCount int32  `msgpack:"totalCount" json:"totalCount"`
	ChunkName  string `msgpack:"chunkName" json:"chunkName"`
	Checksum   uint32 `msgpack:"checksum" json:"checksum"`
	Content    []byte `msgpack:"content" json:"-"`
}

// Verify recomputes the checksum of the content on the receiving side.
func (c SnapshotChunk) Verify() error {
	if got := crc32.ChecksumIEEE(c.Content); got != c.Checksum {
		return fmt.Errorf("chunk %q of snapshot %q: expected %08x, got %08x: %w",
			c.ChunkName, c.SnapshotID, c.Checksum, got, types.ErrChecksumMismatch)
	}
	return nil
}
