// Package logging wraps glog for node-wide structured logging.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package logging

import "github.com/golang/glog"

// V gates request-path logging behind verbosity, e.g.:
//
//	if logging.V(3) { glog.Infof("admitted %s", handle) }
func V(level glog.Level) bool { return bool(glog.V(level)) }

func Infof(format string, args ...interface{})    { glog.Infof(format, args...) }
func Warningf(format string, args ...interface{}) { glog.Warningf(format, args...) }
func Errorf(format string, args ...interface{})   { glog.Errorf(format, args...) }

// Fatalf logs and terminates the process; used for the fatal-at-startup
// error classes and for an overflowing coordinator cast mailbox.
func Fatalf(format string, args ...interface{}) { glog.Fatalf(format, args...) }

func Flush() { glog.Flush() }
