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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, base string, retain int) *Store {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s, err := NewFileStore(base, retain, logger)
	require.NoError(t, err)
	return s
}

func TestEmptyStore(t *testing.T) {
	s := newTestStore(t, t.TempDir(), 2)
	assert.Zero(t, s.CurrentSnapshotIndex())

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestPersistAdvancesBoundary(t *testing.T) {
	s := newTestStore(t, t.TempDir(), 2)

	meta, err := s.Persist(10, 1, []byte("state at ten"))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), meta.Index)
	assert.Equal(t, uint64(10), s.CurrentSnapshotIndex())

	_, err = s.Persist(25, 1, []byte("state at twenty five"))
	require.NoError(t, err)
	assert.Equal(t, uint64(25), s.CurrentSnapshotIndex())

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(25), latest.Index)

	_, rc, err := s.Open(latest.ID)
	require.NoError(t, err)
	state, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "state at twenty five", string(state))
}

func TestBoundaryRecoveredOnReopen(t *testing.T) {
	base := t.TempDir()
	s := newTestStore(t, base, 2)
	_, err := s.Persist(42, 3, []byte("x"))
	require.NoError(t, err)

	reopened := newTestStore(t, base, 2)
	assert.Equal(t, uint64(42), reopened.CurrentSnapshotIndex())
}

func TestBoundaryNeverMovesBack(t *testing.T) {
	s := newTestStore(t, t.TempDir(), 2)
	_, err := s.Persist(30, 2, []byte("x"))
	require.NoError(t, err)

	// an older snapshot written late does not lower the boundary
	_, err = s.Persist(20, 1, []byte("y"))
	require.NoError(t, err)
	idx, err := s.Refresh()
	require.NoError(t, err)
	assert.Equal(t, uint64(30), idx)
}

func TestFiles(t *testing.T) {
	base := t.TempDir()
	s := newTestStore(t, base, 2)
	meta, err := s.Persist(5, 1, []byte("payload"))
	require.NoError(t, err)

	files, err := s.Files(meta.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	names := []string{filepath.Base(files[0]), filepath.Base(files[1])}
	assert.Equal(t, []string{"meta.json", "state.bin"}, names)

	info, err := os.Stat(files[1])
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), info.Size())

	_, err = s.Files("../../etc")
	assert.Error(t, err)
	_, err = s.Files("does-not-exist")
	assert.Error(t, err)
}
