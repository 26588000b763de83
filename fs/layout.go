// Disk layout helpers: hashdir's deterministic path derivation, and the
// object-name encode/decode used for tag files ("tag+timestamp").
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/ddfs-io/ddfsnode/cmn"
)

const (
	KindBlob = "blob"
	KindTag  = "tag"

	// PartialPrefix marks a tag write in progress; never indexed on scan.
	PartialPrefix = "!partial."

	hashDirDepth = 2  // number of hash-derived subdirectory levels
	hashDirWidth = 2  // hex digits consumed per level
)

// HashDir deterministically maps an object's identity (its raw name bytes)
// to a per-kind subdirectory under <root>/<volume>/<kind>/, plus the URL a
// remote client would use to address it. hashdir is a pure function of its
// inputs: same (name, node, kind, root, volume) always yields the same path.
func HashDir(nameBytes []byte, nodeName, kind, root, volume string) (localPath, url string) {
	digest := xxhash.Checksum64(nameBytes)
	hex := fmt.Sprintf("%016x", digest)

	parts := make([]string, 0, hashDirDepth+1)
	for i := 0; i < hashDirDepth; i++ {
		start := i * hashDirWidth
		parts = append(parts, hex[start:start+hashDirWidth])
	}

	dir := filepath.Join(append([]string{root, volume, kind}, parts...)...)
	localPath = filepath.Join(dir, string(nameBytes))
	url = fmt.Sprintf("ddfs://%s/%s/%s/%s", nodeName, volume, kind, string(nameBytes))
	return
}

// PartialName derives the shadow filename a tag write-in-progress is stored
// under before being promoted by an atomic rename on commit.
func PartialName(objName string) string { return PartialPrefix + objName }

// IsPartial reports whether basename names a write-in-progress tag file: any
// name beginning with "!" is skipped during index build.
func IsPartial(basename string) bool { return strings.HasPrefix(basename, "!") }

// EncodeObjname joins a tag name and its timestamp into the canonical
// on-disk object name: "tag+timestamp".
func EncodeObjname(tagName string, timestamp int64) string {
	return tagName + "+" + strconv.FormatInt(timestamp, 10)
}

// UnpackObjname decomposes an encoded "tag+timestamp" object name back into
// its (tag_name, timestamp) pair. timestamp is totally ordered: two decoded
// timestamps compare with plain integer <.
func UnpackObjname(encoded string) (tagName string, timestamp int64, err error) {
	i := strings.LastIndexByte(encoded, '+')
	if i < 0 {
		return "", 0, cmn.NewError(cmn.KindInternalInvariant, "unpack_objname",
			fmt.Errorf("malformed object name %q: missing '+'", encoded))
	}
	tagName = encoded[:i]
	timestamp, perr := strconv.ParseInt(encoded[i+1:], 10, 64)
	if perr != nil {
		return "", 0, cmn.NewError(cmn.KindInternalInvariant, "unpack_objname", perr)
	}
	return tagName, timestamp, nil
}
