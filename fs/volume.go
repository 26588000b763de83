// Package fs provides the Volume Registry and disk-layout helpers: discovery
// and refresh of local storage volumes, and the deterministic path derivation
// used to place blobs and tags on disk.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/ddfs-io/ddfsnode/cmn"
)

// VolumePrefix is the only naming rule the registry imposes on directories
// under the ddfs root: anything else there is ignored.
const VolumePrefix = "vol"

const (
	BlobDir = "blob"
	TagDir  = "tag"
)

// Volume is one local directory subtree of the storage root, with separate
// blob/ and tag/ subtrees. Mutated only by the disk-space monitor publishing
// refreshed Free/Used values; never destroyed during a run.
type Volume struct {
	Name string
	Free uint64
	Used uint64
}

// Volumes is an ordered-by-name list, the unit the registry hands the
// coordinator.
type Volumes []Volume

// Discover lists root, selects the entries whose names begin with
// VolumePrefix, and creates a default "vol0" if none exist. Every selected
// volume gets its blob/ and tag/ subdirectories ensured. The returned list is
// sorted by name with Free/Used at zero: the disk-space monitor fills those
// in on its next tick.
func Discover(root string) (Volumes, error) {
	names, err := listVolumeDirs(root)
	if err != nil {
		return nil, cmn.NewError(cmn.KindRootUnreadable, "discover", err)
	}
	if len(names) == 0 {
		names = []string{"vol0"}
	}
	sort.Strings(names)

	vols := make(Volumes, 0, len(names))
	for _, name := range names {
		if err := ensureVolumeDirs(root, name); err != nil {
			return nil, cmn.NewError(cmn.KindRootUnreadable, "ensure_dir", err)
		}
		vols = append(vols, Volume{Name: name})
	}
	return vols, nil
}

func listVolumeDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), VolumePrefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func ensureVolumeDirs(root, name string) error {
	if err := EnsureDir(filepath.Join(root, name, BlobDir)); err != nil {
		return err
	}
	return EnsureDir(filepath.Join(root, name, TagDir))
}

// Refresh queries free/used bytes for each volume directory under root,
// dropping any entry whose measurement fails this cycle (the disk-space
// monitor tolerates a single bad volume silently; see Merge). Order is
// preserved for the surviving entries.
func Refresh(root string, vols Volumes) Volumes {
	out := make(Volumes, 0, len(vols))
	for _, v := range vols {
		free, used, err := Diskspace(filepath.Join(root, v.Name))
		if err != nil {
			continue
		}
		v.Free, v.Used = free, used
		out = append(out, v)
	}
	return out
}

// ChooseBest returns the volume with the maximum Free among vols. Undefined
// (panics) on an empty list: Discover always returns at least one volume, so
// this precondition should never be violated by a well-formed registry.
func ChooseBest(vols Volumes) (Volume, string) {
	best := vols[0]
	for _, v := range vols[1:] {
		if v.Free > best.Free {
			best = v
		}
	}
	return best, best.Name
}

// Merge unions old and new by volume name, preferring the new measurement
// when present and falling back to the old entry (no measurement) when the
// monitor's snapshot omitted it this cycle. The result is order-stable on
// the old registry's volume order, with any brand-new volumes appended.
func Merge(old, newv Volumes) Volumes {
	byName := make(map[string]Volume, len(newv))
	for _, v := range newv {
		byName[v.Name] = v
	}
	seen := make(map[string]bool, len(old))
	merged := make(Volumes, 0, len(old)+len(newv))
	for _, o := range old {
		seen[o.Name] = true
		if v, ok := byName[o.Name]; ok {
			merged = append(merged, v)
		} else {
			merged = append(merged, o)
		}
	}
	for _, v := range newv {
		if !seen[v.Name] {
			merged = append(merged, v)
		}
	}
	return merged
}

// TotalDiskspace sums Free and Used across vols.
func TotalDiskspace(vols Volumes) (free, used uint64) {
	for _, v := range vols {
		free += v.Free
		used += v.Used
	}
	return
}

// EnsureDir creates all missing path components, the fs-helpers contract's
// ensure_dir.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "ensure_dir %s", path)
	}
	return nil
}

// SafeRename performs an atomic rename within the same volume; it fails only
// if the underlying filesystem rename fails. Used exclusively to promote a
// !partial. tag write to its committed name.
func SafeRename(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return errors.Wrapf(err, "rename %s -> %s", src, dst)
	}
	return nil
}

// FoldFiles recursively walks dir (object files live under hashdir's
// intermediate hash-subdirectories, not flat in dir), invoking
// f(name, fullPath, acc) per regular file and threading acc through.
// Directory walking uses godirwalk for its lower per-entry allocation
// overhead over filepath.Walk/os.ReadDir on large trees.
func FoldFiles(dir string, f func(name, fullPath string, acc interface{}) interface{}, acc interface{}) (interface{}, error) {
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			acc = f(de.Name(), path, acc)
			return nil
		},
		ErrorCallback: func(_ string, err error) godirwalk.ErrorAction {
			if os.IsNotExist(err) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
	})
	if err != nil && !os.IsNotExist(err) {
		return acc, err
	}
	return acc, nil
}
