// Package monitor implements the two background monitors: the disk-space
// poller and the tag-index refresher. Each runs as an independent loop,
// publishing snapshots to the coordinator as fire-and-forget casts; neither
// is authoritative, the coordinator reconciles on receipt.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package monitor

import (
	"context"
	"time"

	"github.com/ddfs-io/ddfsnode/fs"
	"github.com/ddfs-io/ddfsnode/logging"
	"github.com/ddfs-io/ddfsnode/node"
	"github.com/ddfs-io/ddfsnode/tagindex"
)

// Coordinator is the subset of *node.Coordinator the monitors depend on.
type Coordinator interface {
	GetVols() node.Snapshot
	CastVolumes(fs.Volumes)
	CastTagIndex(tagindex.Index)
}

// DiskSpace sleeps interval, measures each known volume's (free, used),
// publishes the measurements that succeeded, and loops until ctx is done.
func DiskSpace(ctx context.Context, c Coordinator, root string, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			snap := c.GetVols()
			refreshed := fs.Refresh(root, snap.Volumes)
			c.CastVolumes(refreshed)
			if logging.V(3) {
				free, used := fs.TotalDiskspace(refreshed)
				logging.Infof("disk-space monitor: free=%d used=%d across %d volumes", free, used, len(refreshed))
			}
		}
	}
}

// TagIndex sleeps interval, rebuilds the tag index from disk, and publishes
// the result, looping until ctx is done.
func TagIndex(ctx context.Context, c Coordinator, root string, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			snap := c.GetVols()
			idx := tagindex.Build(root, snap.Volumes)
			c.CastTagIndex(idx)
			if logging.V(3) {
				logging.Infof("tag-index monitor: rebuilt %d entries", len(idx))
			}
		}
	}
}
