/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package tagindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ddfs-io/ddfsnode/fs"
)

func writeTagFile(t *testing.T, root, vol, name string) {
	t.Helper()
	dir := filepath.Join(root, vol, fs.TagDir, "ab")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildPicksMaxTimestampAcrossVolumes(t *testing.T) {
	root := t.TempDir()
	writeTagFile(t, root, "vol0", "mytag+50")
	writeTagFile(t, root, "vol1", "mytag+70")
	vols := fs.Volumes{{Name: "vol0"}, {Name: "vol1"}}

	idx := Build(root, vols)
	e, ok := Lookup(idx, "mytag")
	if !ok {
		t.Fatalf("expected mytag in index")
	}
	if e.Timestamp != 70 || e.Volume != "vol1" {
		t.Fatalf("expected (70,vol1), got %+v", e)
	}
}

func TestBuildSkipsPartialFiles(t *testing.T) {
	root := t.TempDir()
	writeTagFile(t, root, "vol0", fs.PartialName("mytag+999"))
	vols := fs.Volumes{{Name: "vol0"}}

	idx := Build(root, vols)
	if _, ok := Lookup(idx, "mytag"); ok {
		t.Fatalf("expected partial file to be excluded from the index")
	}
	if len(Keys(idx)) != 0 {
		t.Fatalf("expected empty index, got %+v", Keys(idx))
	}
}

func TestFoldOneKeepsOnlyStrictlyGreater(t *testing.T) {
	idx := make(Index)
	idx.foldOne("t", 10, "vol0")
	idx.foldOne("t", 5, "vol1") // older: ignored
	if e := idx["t"]; e.Timestamp != 10 || e.Volume != "vol0" {
		t.Fatalf("older timestamp must not replace newer: got %+v", e)
	}
	idx.foldOne("t", 20, "vol2") // newer: replaces
	if e := idx["t"]; e.Timestamp != 20 || e.Volume != "vol2" {
		t.Fatalf("newer timestamp must replace: got %+v", e)
	}
}

func TestReplaceIsUnconditionalAndDoesNotMutateOriginal(t *testing.T) {
	idx := Index{"t": {Timestamp: 100, Volume: "vol0"}}
	updated := Replace(idx, "t", Entry{Timestamp: 1, Volume: "vol9"}) // lower timestamp, still wins: commit is authoritative
	if e := updated["t"]; e.Timestamp != 1 || e.Volume != "vol9" {
		t.Fatalf("replace must be unconditional, got %+v", e)
	}
	if e := idx["t"]; e.Timestamp != 100 {
		t.Fatalf("original index must be untouched, got %+v", e)
	}
}

func TestCrashedCommitInvisibleAfterRebuild(t *testing.T) {
	root := t.TempDir()
	writeTagFile(t, root, "vol0", "mytag+50")
	writeTagFile(t, root, "vol0", fs.PartialName("mytag+999")) // crashed write-in-progress
	vols := fs.Volumes{{Name: "vol0"}}

	idx := Build(root, vols)
	e, ok := Lookup(idx, "mytag")
	if !ok || e.Timestamp != 50 {
		t.Fatalf("expected only the committed version visible, got %+v ok=%v", e, ok)
	}
}
