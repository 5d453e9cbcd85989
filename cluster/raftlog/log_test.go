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

package raftlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/raftapply/cluster/boundary"
	"github.com/weaviate/raftapply/cluster/types"
)

func commands(from, to uint64) []*raft.Log {
	logs := make([]*raft.Log, 0, to-from+1)
	for i := from; i <= to; i++ {
		logs = append(logs, &raft.Log{Index: i, Term: 1, Type: raft.LogCommand, Data: []byte{byte(i)}})
	}
	return logs
}

func newTestLog(t *testing.T, store raft.LogStore, opts ...Option) (*Log, *boundary.Snapshot) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	snap := &boundary.Snapshot{}
	return New(store, snap, logger, opts...), snap
}

func TestReaderCommittedOnly(t *testing.T) {
	l, _ := newTestLog(t, raft.NewInmemStore())
	require.NoError(t, l.Append(commands(1, 5)...))

	r := l.OpenReader(1, ModeCommits)
	assert.False(t, r.HasNext(), "nothing committed yet")

	l.Commit(2)
	for want := uint64(1); want <= 2; want++ {
		require.True(t, r.HasNext())
		require.Equal(t, want, r.NextIndex())
		e, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want, e.Index)
		assert.Equal(t, types.EntryCommand, e.Type)
	}
	assert.False(t, r.HasNext())
	_, err := r.Next()
	assert.ErrorIs(t, err, raft.ErrLogNotFound)

	all := l.OpenReader(0, ModeAll)
	assert.Equal(t, uint64(1), all.NextIndex())
	all.Reset(5)
	require.True(t, all.HasNext())
	e, err := all.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), e.Index)
}

func TestCommitIndexIsMonotonic(t *testing.T) {
	l, _ := newTestLog(t, raft.NewInmemStore())
	l.Commit(7)
	l.Commit(3)
	assert.Equal(t, uint64(7), l.CommitIndex())
}

func TestReaderClose(t *testing.T) {
	l, _ := newTestLog(t, raft.NewInmemStore())
	require.NoError(t, l.Append(commands(1, 2)...))
	l.Commit(2)

	r := l.OpenReader(1, ModeCommits)
	require.True(t, r.HasNext())
	require.NoError(t, r.Close())
	assert.False(t, r.HasNext())
}

func TestEntryFromRaftKinds(t *testing.T) {
	for _, tc := range []struct {
		in   raft.LogType
		want types.EntryType
	}{
		{raft.LogCommand, types.EntryCommand},
		{raft.LogNoop, types.EntryNoop},
		{raft.LogBarrier, types.EntryBarrier},
		{raft.LogConfiguration, types.EntryConfiguration},
		{raft.LogAddPeerDeprecated, types.EntryUnknown},
		{raft.LogRemovePeerDeprecated, types.EntryUnknown},
		{raft.LogType(200), types.EntryUnknown},
	} {
		e := EntryFromRaft(&raft.Log{Index: 1, Term: 2, Type: tc.in})
		assert.Equal(t, tc.want, e.Type, tc.in.String())
		assert.Equal(t, uint8(tc.in), e.RawType)
	}
}

func TestCompactability(t *testing.T) {
	l, snap := newTestLog(t, raft.NewInmemStore(), WithSegmentSize(4))
	require.NoError(t, l.Append(commands(1, 20)...))
	l.Commit(20)

	assert.False(t, l.IsCompactable(0))
	assert.False(t, l.IsCompactable(10), "no snapshot yet")

	snap.Advance(10)
	assert.True(t, l.IsCompactable(10))
	assert.False(t, l.IsCompactable(11))

	assert.Equal(t, uint64(9), l.CompactableIndex(10))
	assert.Equal(t, uint64(9), l.CompactableIndex(12))
	assert.Equal(t, uint64(13), l.CompactableIndex(13))
	assert.Equal(t, uint64(1), l.CompactableIndex(4))
}

func TestCompact(t *testing.T) {
	l, _ := newTestLog(t, raft.NewInmemStore())
	require.NoError(t, l.Append(commands(1, 10)...))

	require.NoError(t, l.Compact(6))
	first, err := l.FirstIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), first)

	_, err = l.Entry(5)
	assert.ErrorIs(t, err, raft.ErrLogNotFound)
	e, err := l.Entry(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), e.Index)

	// compacting below the first index is a no-op
	require.NoError(t, l.Compact(3))
	first, err = l.FirstIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), first)
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "raft.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	l, _ := newTestLog(t, store)
	require.NoError(t, l.Append(commands(1, 8)...))
	l.Commit(8)

	require.NoError(t, l.Compact(4))
	first, err := l.FirstIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), first)

	r := l.OpenReader(4, ModeCommits)
	var got []uint64
	for r.HasNext() {
		e, err := r.Next()
		require.NoError(t, err)
		got = append(got, e.Index)
	}
	assert.Equal(t, []uint64{4, 5, 6, 7, 8}, got)
}
