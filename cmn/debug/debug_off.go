//go:build !debug

// Package debug provides assertion helpers compiled in only under the
// "debug" build tag. Without it, every call is a zero-cost no-op.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package debug

func Assert(cond bool, a ...interface{})             {}
func Assertf(cond bool, f string, a ...interface{})  {}
func AssertNoErr(err error)                          {}
func Func(f func())                                  {}
