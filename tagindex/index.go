// Package tagindex maintains the newest-timestamp-wins mapping from tag name
// to the (timestamp, volume) holding its freshest known version. The index
// is a pure in-memory cache: the disk remains the source of truth, and the
// index is always reconstructable by a full Build.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package tagindex

import (
	"path/filepath"

	"github.com/ddfs-io/ddfsnode/fs"
	"github.com/ddfs-io/ddfsnode/logging"
)

// Entry identifies the volume currently holding the freshest known version
// of a tag, and the timestamp of that version.
type Entry struct {
	Timestamp int64
	Volume    string
}

// Index maps tag_name -> Entry. Callers treat it as an immutable value after
// Build/Replace return a (possibly-shared) new map; Build never mutates an
// index passed to it.
type Index map[string]Entry

// Build walks every volume's tag/ subtree and folds the discovered
// "tag+timestamp" object names into a fresh index: the first occurrence of a
// tag name is inserted, later occurrences replace the entry only if their
// timestamp is strictly greater. Names beginning with fs.PartialPrefix (or
// any "!" prefix) are skipped, so a crashed commit whose partial file remains
// is invisible here; a commit whose rename completed before the crash is
// indexed like any other committed file.
func Build(root string, vols fs.Volumes) Index {
	idx := make(Index, 64)
	for _, v := range vols {
		tagDir := filepath.Join(root, v.Name, fs.TagDir)
		acc, err := fs.FoldFiles(tagDir, foldInto(v.Name), idx)
		if err != nil {
			logging.Warningf("tagindex: build: %s: %v", tagDir, err)
			continue
		}
		idx = acc.(Index)
	}
	return idx
}

func foldInto(volume string) func(name, fullPath string, acc interface{}) interface{} {
	return func(name, _ string, acc interface{}) interface{} {
		idx := acc.(Index)
		if fs.IsPartial(name) {
			return idx
		}
		tagName, timestamp, err := fs.UnpackObjname(name)
		if err != nil {
			logging.Warningf("tagindex: skipping unparsable object name %q: %v", name, err)
			return idx
		}
		idx.foldOne(tagName, timestamp, volume)
		return idx
	}
}

// foldOne inserts or conditionally replaces the entry for tagName: on first
// occurrence insert, on subsequent occurrence replace iff the incoming
// timestamp is strictly greater than what's already recorded.
func (idx Index) foldOne(tagName string, timestamp int64, volume string) {
	cur, ok := idx[tagName]
	if !ok || timestamp > cur.Timestamp {
		idx[tagName] = Entry{Timestamp: timestamp, Volume: volume}
	}
}

// Lookup returns the current entry for tagName, if any.
func Lookup(idx Index, tagName string) (Entry, bool) {
	e, ok := idx[tagName]
	return e, ok
}

// Keys returns every tag name currently indexed; iteration order is
// irrelevant and not guaranteed stable across calls.
func Keys(idx Index) []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	return keys
}

// Replace unconditionally sets the entry for tagName, returning a new index
// that shares the unaffected entries with idx. Used on commit: by the time
// Replace is called the coordinator has already verified newness via the
// successful on-disk rename, so no timestamp comparison happens here.
func Replace(idx Index, tagName string, e Entry) Index {
	out := make(Index, len(idx)+1)
	for k, v := range idx {
		out[k] = v
	}
	out[tagName] = e
	return out
}
