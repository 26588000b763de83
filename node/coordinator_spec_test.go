/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package node_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ddfs-io/ddfsnode/fs"
	"github.com/ddfs-io/ddfsnode/node"
)

var _ = Describe("Node Coordinator", func() {
	var (
		root string
		c    *node.Coordinator
	)

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "ddfsnode-spec-")
		Expect(err).NotTo(HaveOccurred())
		for _, vol := range []string{"vol0", "vol1"} {
			Expect(os.MkdirAll(filepath.Join(root, vol, fs.BlobDir), 0o755)).To(Succeed())
			Expect(os.MkdirAll(filepath.Join(root, vol, fs.TagDir), 0o755)).To(Succeed())
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var newErr error
		c, newErr = node.New(ctx, "node1", root, 4, 4, 4, 4)
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if c != nil {
			c.Stop()
		}
		os.RemoveAll(root)
	})

	// Volume choice always follows the freshest free-space reading.
	Context("volume selection", func() {
		It("places a new blob on the volume with the most free space", func() {
			c.CastVolumes(fs.Volumes{{Name: "vol0", Free: 100}, {Name: "vol1", Free: 500}})

			Eventually(func() fs.Volumes {
				return c.GetVols().Volumes
			}, time.Second, 5*time.Millisecond).Should(ContainElement(fs.Volume{Name: "vol1", Free: 500}))

			replyCh := make(chan node.BlobReply, 1)
			c.PutBlob("b", "A", func(r node.BlobReply) { replyCh <- r })
			reply := <-replyCh

			Expect(reply.OK).To(BeTrue())
			Expect(reply.Local).To(ContainSubstring(filepath.Join(root, "vol1", fs.BlobDir)))
			Expect(strings.Contains(reply.Local, filepath.Join(root, "vol0", fs.BlobDir))).To(BeFalse())
		})
	})
})
