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

package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type compactCommand struct {
	opts *Options

	Watermark uint64 `long:"watermark" required:"true" description:"highest index the application agrees to lose"`
}

func (c *compactCommand) Execute(_ []string) error {
	cfg, logger, err := setup(c.opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st := newStore(cfg, logger, nil)
	if err := st.Open(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore(st, logger)

	// everything stored on this node was committed before it was written,
	// raising the commit index here does not apply anything
	last, err := st.Log().LastIndex()
	if err != nil {
		return fmt.Errorf("read last log index: %w", err)
	}
	st.Log().Commit(last)
	before, _ := st.Log().FirstIndex()

	st.SetCompactablePosition(c.Watermark, 0)
	if _, err := st.Compact().Result(ctx); err != nil {
		return err
	}

	after, _ := st.Log().FirstIndex()
	logger.WithFields(logrus.Fields{
		"watermark":           c.Watermark,
		"last_snapshot_index": st.Snapshots().CurrentSnapshotIndex(),
		"first_index_before":  before,
		"first_index_after":   after,
	}).Info("compaction cycle finished")
	return nil
}
