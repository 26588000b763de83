/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package queue_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ddfs-io/ddfsnode/cmn"
	"github.com/ddfs-io/ddfsnode/queue"
)

var _ = Describe("AdmissionQueue", func() {
	var q *queue.AdmissionQueue

	BeforeEach(func() {
		q = queue.New("spec", 1, 1)
	})

	Context("put-blob overflow", func() {
		It("accepts A running, B waiting, and refuses C", func() {
			resA, _ := q.Add("A", func() {})
			resB, _ := q.Add("B", func() {})
			resC, errC := q.Add("C", func() {})

			Expect(resA).To(Equal(queue.AcceptedRunning))
			Expect(resB).To(Equal(queue.AcceptedWaiting))
			Expect(resC).To(Equal(queue.Full))
			Expect(cmn.IsFull(errC)).To(BeTrue())
		})
	})

	Context("handle death promotes waiter", func() {
		It("runs B's action once A is removed", func() {
			var bRan bool
			q.Add("A", func() {})
			q.Add("B", func() { bRan = true })

			Expect(bRan).To(BeFalse())
			q.Remove("A")
			Expect(bRan).To(BeTrue())
			Expect(q.Running()).To(Equal(1))
			Expect(q.Waiting()).To(Equal(0))
		})
	})

	Context("invariants", func() {
		It("never lets running exceed capacity nor waiting exceed max_waiting", func() {
			q := queue.New("inv", 3, 2)
			for i := 0; i < 10; i++ {
				q.Add(string(rune('a'+i)), func() {})
				Expect(q.Running()).To(BeNumerically("<=", 3))
				Expect(q.Waiting()).To(BeNumerically("<=", 2))
			}
		})
	})
})
