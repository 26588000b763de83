/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package node

import "github.com/ddfs-io/ddfsnode/fs"

// BlobReply is what a put_blob/get_blob admission action hands back to the
// waiting caller once it actually runs.
type BlobReply struct {
	OK     bool
	Local  string
	URL    string
	Reason string
}

// TagDataReply is the result of the isolated get_tag_data reader.
type TagDataReply struct {
	OK     bool
	Data   []byte
	Reason string
}

// PutTagDataReply is the synchronous reply to put_tag_data.
type PutTagDataReply struct {
	OK     bool
	Volume string
	Reason string
}

// PutTagCommitReply is the synchronous reply to put_tag_commit.
type PutTagCommitReply struct {
	OK     bool
	URL    string
	Reason string
}

// Snapshot is a read-only view of coordinator state, handed out to callers
// of GetVols; its Volumes never alias the coordinator's live volumes slice.
// GetVols does not fill in Tags.
type Snapshot struct {
	NodeName string
	DdfsRoot string
	Volumes  fs.Volumes
	Tags     []string
}
