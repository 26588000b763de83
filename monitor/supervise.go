/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package monitor

import (
	"context"

	"github.com/ddfs-io/ddfsnode/logging"
)

// Supervise runs fn, restarting it immediately if it returns before ctx is
// done — including after a panic, which is recovered and logged rather than
// propagated. Both DiskSpace and TagIndex only return when ctx is done, so
// under normal operation Supervise calls fn exactly once.
func Supervise(ctx context.Context, name string, fn func(context.Context)) {
	for {
		if ctx.Err() != nil {
			return
		}
		runOnce(ctx, name, fn)
		if ctx.Err() != nil {
			return
		}
		logging.Warningf("monitor %q returned abnormally, restarting", name)
	}
}

func runOnce(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("monitor %q panicked: %v", name, r)
		}
	}()
	fn(ctx)
}
