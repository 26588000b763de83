//go:build linux

/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import "golang.org/x/sys/unix"

// Diskspace measures free/used bytes for the filesystem backing path via
// statfs(2).
func Diskspace(path string) (free, used uint64, err error) {
	var st unix.Statfs_t
	if err = unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize)
	free = st.Bavail * bsize
	used = (st.Blocks - st.Bfree) * bsize
	return
}
