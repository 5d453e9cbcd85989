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

package integrity

import (
	"hash/crc32"
	"io"
	"os"

	"github.com/weaviate/raftapply/entities/diskio"
)

// Checksum is the CRC-32 (IEEE) of content.
func Checksum(content []byte) uint32 {
	return crc32.ChecksumIEEE(content)
}

// CRC32 streams the file at path and returns its size and checksum.
func CRC32(path string) (int64, uint32, error) {
	return CRC32Metered(path, nil)
}

// CRC32Metered is CRC32 with a callback invoked for every read.
func CRC32Metered(path string, cb diskio.MeteredReaderCallback) (int64, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	n, err := io.Copy(h, diskio.NewMeteredReader(f, cb))
	if err != nil {
		return 0, 0, err
	}
	return n, h.Sum32(), nil
}
