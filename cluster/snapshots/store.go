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

// Package snapshots tracks durable raft snapshots on disk and publishes the
// snapshot boundary read by the apply engine and the log compaction.
package snapshots

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hashicorp/raft"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/boundary"
	"github.com/weaviate/raftapply/cluster/log"
	"github.com/weaviate/raftapply/entities/diskio"
)

// snapshotsDir mirrors the layout used by raft.FileSnapshotStore.
const snapshotsDir = "snapshots"

var ErrNoSnapshot = errors.New("no snapshot available")

// Store is the only writer of the snapshot boundary. The boundary is raised
// by Refresh or Persist, never lowered, even when old snapshots are reaped.
type Store struct {
	dir      string
	files    *raft.FileSnapshotStore
	boundary boundary.Snapshot
	logger   logrus.FieldLogger
}

// NewFileStore opens the file snapshot store rooted at base, keeping the
// retain newest snapshots, and loads the current boundary from it.
func NewFileStore(base string, retain int, logger *logrus.Logger) (*Store, error) {
	files, err := raft.NewFileSnapshotStoreWithLogger(base, retain, log.NewHCLogrusLogger("snapshot", logger))
	if err != nil {
		return nil, fmt.Errorf("file snapshot store: %w", err)
	}

	s := &Store{
		dir:    filepath.Join(base, snapshotsDir),
		files:  files,
		logger: logger.WithField("action", "snapshot_store"),
	}
	if _, err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// CurrentSnapshotIndex returns the index of the latest durable snapshot.
func (s *Store) CurrentSnapshotIndex() uint64 {
	return s.boundary.Load()
}

// Refresh re-reads the newest snapshot on disk and advances the boundary.
func (s *Store) Refresh() (uint64, error) {
	metas, err := s.files.List()
	if err != nil {
		return s.CurrentSnapshotIndex(), fmt.Errorf("list snapshots: %w", err)
	}
	if len(metas) > 0 && s.boundary.Advance(metas[0].Index) {
		s.logger.WithFields(logrus.Fields{
			"snapshot_id": metas[0].ID,
			"index":       metas[0].Index,
			"term":        metas[0].Term,
		}).Info("snapshot boundary advanced")
	}
	return s.CurrentSnapshotIndex(), nil
}

// Latest returns the metadata of the newest snapshot.
func (s *Store) Latest() (*raft.SnapshotMeta, error) {
	metas, err := s.files.List()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(metas) == 0 {
		return nil, ErrNoSnapshot
	}
	return metas[0], nil
}

// Files returns the paths of the files making up the snapshot id.
func (s *Store) Files(id string) ([]string, error) {
	dir, err := diskio.SanitizeFilePathJoin(s.dir, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", id, err)
	}
	files, err := diskio.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list files of snapshot %q: %w", id, err)
	}
	return files, nil
}

// Persist writes state as a new snapshot covering the log up to index and
// advances the boundary once the snapshot is durable.
func (s *Store) Persist(index, term uint64, state []byte) (*raft.SnapshotMeta, error) {
	sink, err := s.files.Create(raft.SnapshotVersionMax, index, term, raft.Configuration{}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := sink.Write(state); err != nil {
		_ = sink.Cancel()
		return nil, fmt.Errorf("write snapshot %s: %w", sink.ID(), err)
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot %s: %w", sink.ID(), err)
	}

	if _, err := s.Refresh(); err != nil {
		return nil, err
	}
	meta, rc, err := s.Open(sink.ID())
	if err != nil {
		return nil, err
	}
	return meta, rc.Close()
}

// Open returns the metadata and the state reader of snapshot id.
func (s *Store) Open(id string) (*raft.SnapshotMeta, io.ReadCloser, error) {
	meta, rc, err := s.files.Open(id)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot %s: %w", id, err)
	}
	return meta, rc, nil
}
