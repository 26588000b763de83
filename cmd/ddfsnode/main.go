// Command ddfsnode runs the per-node storage service: volume discovery, the
// admission queues, the tag index, and the background monitors, fronted by
// a minimal read-only admin surface.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ddfs-io/ddfsnode/cmn"
	"github.com/ddfs-io/ddfsnode/logging"
	"github.com/ddfs-io/ddfsnode/monitor"
	"github.com/ddfs-io/ddfsnode/node"
)

func main() {
	configPath := flag.String("config", "", "path to the node's JSON config file")
	flag.Parse()

	cfg, err := cmn.LoadConfig(*configPath)
	if err != nil {
		logging.Fatalf("startup: %v", err)
	}
	cfg.ApplyFlags(flag.CommandLine)
	logging.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.NodeStartup)
	coord, err := node.New(ctx, cfg.NodeName, cfg.DdfsRoot,
		cfg.PutMax, cfg.HTTPQueueLength, cfg.GetMax, cfg.HTTPQueueLength)
	cancel()
	if err != nil {
		logging.Fatalf("startup: %v", err)
	}

	registry := prometheus.NewRegistry()
	for _, col := range coord.Collectors() {
		_ = registry.Register(col)
	}

	admin := node.NewAdminServer(coord)
	go func() {
		if err := admin.ListenAndServe(cfg.AdminAddr); err != nil {
			logging.Errorf("admin server: %v", err)
		}
	}()

	runCtx, runCancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		monitor.Supervise(gctx, "diskspace", func(c context.Context) {
			monitor.DiskSpace(c, coord, cfg.DdfsRoot, cfg.DiskInterval)
		})
		return nil
	})
	g.Go(func() error {
		monitor.Supervise(gctx, "tagindex", func(c context.Context) {
			monitor.TagIndex(c, coord, cfg.DdfsRoot, cfg.TagInterval)
		})
		return nil
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Infof("shutting down")
	runCancel()
	_ = g.Wait()
	_ = admin.Shutdown()
	coord.Stop()
}
