// Package cmn provides common low-level types, configuration, and error
// kinds shared by every ddfsnode package.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import "sync/atomic"

const (
	// Alphabet for generating tie-breaker strings.
	// NOTE: len(uuidABC) > 0x3f - see GenTie().
	uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"
)

var rtie int32

// GenTie returns a short, monotonically-biased tie-breaker string, used to
// keep partial-tag-write temp files unique across concurrent writers of the
// same tag name.
func GenTie() string {
	tie := atomic.AddInt32(&rtie, 1)
	b0 := uuidABC[tie&0x3f]
	b1 := uuidABC[-tie&0x3f]
	b2 := uuidABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}
