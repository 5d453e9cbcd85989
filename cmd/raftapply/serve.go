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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/entities/cyclemanager"
	enterrors "github.com/weaviate/raftapply/entities/errors"
	"github.com/weaviate/raftapply/usecases/config"
)

type serveCommand struct {
	opts *Options
}

func (c *serveCommand) Execute(_ []string) error {
	cfg, logger, err := setup(c.opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := newCountingListener(logger)
	var reg prometheus.Registerer
	if cfg.Monitoring.Enabled {
		reg = prometheus.DefaultRegisterer
	}
	st := newStore(cfg, logger, reg, listener)
	if err := st.Open(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore(st, logger)

	var server *http.Server
	if cfg.Monitoring.Enabled {
		server = startMetricsServer(cfg, logger)
	}

	refresh := cyclemanager.New("snapshot_refresh", cfg.Snapshot.RefreshInterval, logger)
	refresh.Register("commit_tail", func(cyclemanager.ShouldBreakFunc) bool {
		last, err := st.Log().LastIndex()
		if err != nil {
			logger.WithError(err).Warn("read last log index")
			return false
		}
		if last <= st.Log().CommitIndex() {
			return false
		}
		st.Commit(last)
		return true
	})
	refresh.Register("refresh_snapshot", func(cyclemanager.ShouldBreakFunc) bool {
		before := st.Snapshots().CurrentSnapshotIndex()
		index, err := st.RefreshSnapshot()
		if err != nil {
			logger.WithError(err).Warn("refresh snapshot")
			return false
		}
		return index > before
	})

	compact := cyclemanager.New("compaction", cfg.Compaction.Interval, logger)
	compact.Register("compact", func(cyclemanager.ShouldBreakFunc) bool {
		// the counting listener keeps nothing that needs the log, everything
		// applied may go once a snapshot covers it
		applied := st.Engine().LastApplied()
		st.SetCompactablePosition(applied.Index, applied.Term)

		before, _ := st.Log().FirstIndex()
		if err := st.Compact().Error(); err != nil {
			logger.WithError(err).Warn("compaction cycle failed")
			return false
		}
		after, _ := st.Log().FirstIndex()
		return after > before
	})

	refresh.Start()
	compact.Start()
	logger.WithFields(logrus.Fields{
		"refresh_interval":    cfg.Snapshot.RefreshInterval,
		"compaction_interval": cfg.Compaction.Interval,
	}).Info("serving")

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, cm := range []*cyclemanager.CycleManager{refresh, compact} {
		if err := cm.StopAndWait(shutdownCtx); err != nil {
			logger.WithError(err).Warn("stop cycle")
		}
	}
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown metrics server")
		}
	}
	return nil
}

func startMetricsServer(cfg config.Config, logger logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	enterrors.GoWrapper(func() {
		logger.WithField("port", cfg.Monitoring.Port).Info("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server")
		}
	}, logger)
	return server
}
