/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverCreatesDefaultVolume(t *testing.T) {
	root := t.TempDir()
	vols, err := Discover(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(vols) != 1 || vols[0].Name != "vol0" {
		t.Fatalf("expected a single default vol0, got %+v", vols)
	}
	for _, sub := range []string{BlobDir, TagDir} {
		if _, err := os.Stat(filepath.Join(root, "vol0", sub)); err != nil {
			t.Fatalf("expected %s subdir: %v", sub, err)
		}
	}
}

func TestDiscoverIgnoresNonVolDirs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"vol1", "vol0", "scratch", "logs"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	vols, err := Discover(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(vols) != 2 {
		t.Fatalf("expected exactly the two vol* dirs, got %+v", vols)
	}
	if vols[0].Name != "vol0" || vols[1].Name != "vol1" {
		t.Fatalf("expected sorted [vol0 vol1], got %+v", vols)
	}
}

func TestChooseBestReturnsMaxFree(t *testing.T) {
	vols := Volumes{
		{Name: "vol0", Free: 100},
		{Name: "vol1", Free: 500},
		{Name: "vol2", Free: 10},
	}
	best, name := ChooseBest(vols)
	if name != "vol1" || best.Free != 500 {
		t.Fatalf("expected vol1/500, got %s/%d", name, best.Free)
	}
}

func TestMergePrefersNewButKeepsOmitted(t *testing.T) {
	old := Volumes{
		{Name: "vol0", Free: 1, Used: 1},
		{Name: "vol1", Free: 2, Used: 2},
	}
	// monitor measured vol0 this cycle but failed on vol1
	newv := Volumes{
		{Name: "vol0", Free: 9, Used: 9},
	}
	merged := Merge(old, newv)
	if len(merged) != 2 {
		t.Fatalf("expected both volumes preserved, got %+v", merged)
	}
	if merged[0].Name != "vol0" || merged[0].Free != 9 {
		t.Fatalf("expected vol0 updated to new reading, got %+v", merged[0])
	}
	if merged[1].Name != "vol1" || merged[1].Free != 2 {
		t.Fatalf("expected vol1 preserved from old reading, got %+v", merged[1])
	}
}

func TestMergeAppendsBrandNewVolumes(t *testing.T) {
	old := Volumes{{Name: "vol0", Free: 1}}
	newv := Volumes{{Name: "vol0", Free: 2}, {Name: "vol1", Free: 3}}
	merged := Merge(old, newv)
	if len(merged) != 2 || merged[1].Name != "vol1" {
		t.Fatalf("expected vol1 appended, got %+v", merged)
	}
}

func TestTotalDiskspaceSums(t *testing.T) {
	vols := Volumes{{Free: 10, Used: 1}, {Free: 20, Used: 2}}
	free, used := TotalDiskspace(vols)
	if free != 30 || used != 3 {
		t.Fatalf("expected 30/3, got %d/%d", free, used)
	}
}

func TestSafeRenameAndEnsureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("ensure_dir: %v", err)
	}
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SafeRename(src, dst); err != nil {
		t.Fatalf("safe_rename: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected renamed file: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected src gone")
	}
}

func TestFoldFilesRecursesHashSubdirs(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "ab", "cd")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "mytag+100"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	names, err := FoldFiles(root, func(name, _ string, acc interface{}) interface{} {
		return append(acc.([]string), name)
	}, []string{})
	if err != nil {
		t.Fatalf("fold_files: %v", err)
	}
	got := names.([]string)
	if len(got) != 1 || got[0] != "mytag+100" {
		t.Fatalf("expected [mytag+100], got %+v", got)
	}
}
