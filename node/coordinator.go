// Package node implements the Node Coordinator: the single serialization
// point owning the volume registry, both admission queues, the tag index,
// and node identity. Every external request and every monitor update is
// handled by one logical goroutine processing one message at a time to
// completion (or an explicit async reply), matching the single-threaded
// cooperative serializer described by the concurrency model.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package node

import (
	"context"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ddfs-io/ddfsnode/cmn"
	"github.com/ddfs-io/ddfsnode/cmn/debug"
	"github.com/ddfs-io/ddfsnode/fs"
	"github.com/ddfs-io/ddfsnode/logging"
	"github.com/ddfs-io/ddfsnode/queue"
	"github.com/ddfs-io/ddfsnode/tagindex"
)

// state is owned exclusively by Coordinator.run; nothing outside that
// goroutine may touch it directly.
type state struct {
	volumes fs.Volumes
	tagIdx  tagindex.Index
}

// castFull is the fatal error raised when the monitor->coordinator mailbox
// overflows: per the concurrency model, monitor publishes are fire-and-forget
// and a queue-full condition there is a programming error, not a transient
// one.
type castFull struct{}

func (castFull) Error() string { return "coordinator cast channel full" }

type cast func(*state)

// Coordinator is the node's single serialization point.
type Coordinator struct {
	nodeName string
	ddfsRoot string

	putQueue *queue.AdmissionQueue
	getQueue *queue.AdmissionQueue

	reqCh  chan func(*state)
	castCh chan cast
	stopCh chan struct{}

	tagCountGauge prometheus.Gauge
}

// New discovers volumes and builds the initial tag index within the bound
// set by ctx, then starts the serialization loop. ctx should carry the
// NODE_STARTUP deadline; exceeding it or failing to enumerate ddfsRoot is
// root-unreadable-class fatal.
func New(ctx context.Context, nodeName, ddfsRoot string, putMax, putWaiting, getMax, getWaiting int) (*Coordinator, error) {
	type initResult struct {
		vols fs.Volumes
		idx  tagindex.Index
		err  error
	}
	done := make(chan initResult, 1)
	go func() {
		vols, err := fs.Discover(ddfsRoot)
		if err != nil {
			done <- initResult{err: err}
			return
		}
		vols = fs.Refresh(ddfsRoot, vols)
		idx := tagindex.Build(ddfsRoot, vols)
		done <- initResult{vols: vols, idx: idx}
	}()

	select {
	case <-ctx.Done():
		return nil, cmn.NewError(cmn.KindRootUnreadable, "startup", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		c := &Coordinator{
			nodeName: nodeName,
			ddfsRoot: ddfsRoot,
			putQueue: queue.New("put", putMax, putWaiting),
			getQueue: queue.New("get", getMax, getWaiting),
			reqCh:    make(chan func(*state)),
			castCh:   make(chan cast, 4),
			stopCh:   make(chan struct{}),
			tagCountGauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "ddfsnode",
				Subsystem: "coordinator",
				Name:      "tag_count",
				Help:      "number of distinct tag names in the local index",
			}),
		}
		go c.run(&state{volumes: r.vols, tagIdx: r.idx})
		return c, nil
	}
}

// Collectors exposes every Prometheus collector owned by the coordinator and
// its admission queues.
func (c *Coordinator) Collectors() []prometheus.Collector {
	cols := []prometheus.Collector{c.tagCountGauge}
	cols = append(cols, c.putQueue.Collectors()...)
	cols = append(cols, c.getQueue.Collectors()...)
	return cols
}

func (c *Coordinator) run(s *state) {
	c.tagCountGauge.Set(float64(len(s.tagIdx)))
	for {
		select {
		case f := <-c.reqCh:
			f(s)
			c.tagCountGauge.Set(float64(len(s.tagIdx)))
		case cc := <-c.castCh:
			cc(s)
			c.tagCountGauge.Set(float64(len(s.tagIdx)))
		case <-c.stopCh:
			return
		}
	}
}

// Stop terminates the serialization loop. Admitted slots and in-flight
// isolated readers are not cancelled; callers should only Stop after
// draining those.
func (c *Coordinator) Stop() { close(c.stopCh) }

func (c *Coordinator) submit(f func(*state)) {
	done := make(chan struct{})
	c.reqCh <- func(s *state) {
		f(s)
		close(done)
	}
	<-done
}

// GetTags replies with the current set of tag names.
func (c *Coordinator) GetTags() []string {
	var tags []string
	c.submit(func(s *state) { tags = tagindex.Keys(s.tagIdx) })
	return tags
}

// GetVols replies with the current volume list and root.
func (c *Coordinator) GetVols() Snapshot {
	var snap Snapshot
	c.submit(func(s *state) {
		vols := make(fs.Volumes, len(s.volumes))
		copy(vols, s.volumes)
		snap = Snapshot{NodeName: c.nodeName, DdfsRoot: c.ddfsRoot, Volumes: vols}
	})
	return snap
}

// GetDiskspace replies with summed (free, used) across all volumes.
func (c *Coordinator) GetDiskspace() (free, used uint64) {
	c.submit(func(s *state) { free, used = fs.TotalDiskspace(s.volumes) })
	return
}

// GetTagTimestamp looks up tagName in the index, replying notfound or the
// (timestamp, volume) pair.
func (c *Coordinator) GetTagTimestamp(tagName string) (tagindex.Entry, bool) {
	var (
		e  tagindex.Entry
		ok bool
	)
	c.submit(func(s *state) { e, ok = tagindex.Lookup(s.tagIdx, tagName) })
	return e, ok
}

// GetBlob adds handle to the get-queue. On accepted-running the action runs
// immediately (and notify fires inline); on accepted-waiting notify fires
// later, when a running slot frees up; on full no action is scheduled.
func (c *Coordinator) GetBlob(handle string, notify func(BlobReply)) queue.Result {
	var res queue.Result
	c.submit(func(s *state) {
		action := func() { notify(BlobReply{OK: true}) }
		res, _ = c.getQueue.Add(handle, action)
	})
	return res
}

// PutBlob adds handle to the put-queue. The scheduled action chooses the
// best volume by free space at the moment it runs, derives (local, url) via
// hashdir, ensures the blob's hash-directory exists, and notifies the
// caller with either an ok reply or an error reply. Volume selection always
// reflects the volumes known to the coordinator when the action actually
// executes, not when it was enqueued.
func (c *Coordinator) PutBlob(blobName, handle string, notify func(BlobReply)) queue.Result {
	var res queue.Result
	c.submit(func(s *state) {
		action := func() {
			_, volName := fs.ChooseBest(s.volumes)
			local, url := fs.HashDir([]byte(blobName), c.nodeName, fs.KindBlob, c.ddfsRoot, volName)
			if err := fs.EnsureDir(filepath.Dir(local)); err != nil {
				notify(BlobReply{OK: false, Local: local, Reason: err.Error()})
				return
			}
			notify(BlobReply{OK: true, Local: local, URL: url})
		}
		res, _ = c.putQueue.Add(handle, action)
	})
	return res
}

// GetTagData spawns an isolated reader (off the coordinator goroutine, per
// the concurrency model) that computes the tag's path via hashdir, reads the
// file, and notifies the caller. It does not touch shared coordinator state:
// node identity and ddfsRoot are immutable for the node's lifetime.
func (c *Coordinator) GetTagData(tag string, entry tagindex.Entry, notify func(TagDataReply)) {
	go func() {
		local, _ := fs.HashDir([]byte(tag), c.nodeName, fs.KindTag, c.ddfsRoot, entry.Volume)
		data, err := os.ReadFile(local)
		if err != nil {
			logging.Warningf("get_tag_data: read_failed for %s: %v", local, err)
			notify(TagDataReply{OK: false, Reason: "read_failed"})
			return
		}
		notify(TagDataReply{OK: true, Data: data})
	}()
}

// PutTagData chooses the best volume, derives the partial-file path, ensures
// the directory, and writes data to "!partial.<tag>" on that volume. This is
// a short, synchronous filesystem write performed inline on the coordinator
// goroutine (small metadata objects only; blob bytes never flow through
// here). No index mutation happens on this path.
//
// The write itself goes to a scratch name first and is promoted into place
// by SafeRename, so a reader (or a crash) never observes a half-written
// "!partial.<tag>" file; the scratch name's uniqueness comes from
// cmn.GenTie(), the same tie-breaker scheme used for temp-file writes.
func (c *Coordinator) PutTagData(tag string, data []byte) PutTagDataReply {
	var reply PutTagDataReply
	c.submit(func(s *state) {
		_, volName := fs.ChooseBest(s.volumes)
		local, _ := fs.HashDir([]byte(fs.PartialName(tag)), c.nodeName, fs.KindTag, c.ddfsRoot, volName)
		if err := fs.EnsureDir(filepath.Dir(local)); err != nil {
			reply = PutTagDataReply{OK: false, Reason: err.Error()}
			return
		}
		scratch := local + ".tmp." + cmn.GenTie()
		if err := os.WriteFile(scratch, data, 0o644); err != nil {
			reply = PutTagDataReply{OK: false, Reason: err.Error()}
			return
		}
		if err := fs.SafeRename(scratch, local); err != nil {
			os.Remove(scratch)
			reply = PutTagDataReply{OK: false, Reason: err.Error()}
			return
		}
		reply = PutTagDataReply{OK: true, Volume: volName}
	})
	return reply
}

// PutTagCommit selects this node's volume from commitMap, renames the
// partial file to its final name, and — only on rename success — replaces
// the index entry for the tag unconditionally (a commit is the authoritative
// latest version for this node). commitMap missing this node's entry is an
// internal-invariant error, signaled rather than guessed at.
func (c *Coordinator) PutTagCommit(tag string, commitMap map[string]string) PutTagCommitReply {
	var reply PutTagCommitReply
	c.submit(func(s *state) {
		volName, ok := commitMap[c.nodeName]
		if !ok {
			err := cmn.NewError(cmn.KindInternalInvariant, "put_tag_commit",
				errNodeNotInCommitMap(c.nodeName))
			reply = PutTagCommitReply{OK: false, Reason: err.Error()}
			return
		}
		partial, _ := fs.HashDir([]byte(fs.PartialName(tag)), c.nodeName, fs.KindTag, c.ddfsRoot, volName)
		final, url := fs.HashDir([]byte(tag), c.nodeName, fs.KindTag, c.ddfsRoot, volName)
		if err := fs.EnsureDir(filepath.Dir(final)); err != nil {
			reply = PutTagCommitReply{OK: false, Reason: err.Error()}
			return
		}
		if err := fs.SafeRename(partial, final); err != nil {
			reply = PutTagCommitReply{OK: false, Reason: err.Error()}
			return
		}
		tagName, timestamp, err := fs.UnpackObjname(tag)
		if err != nil {
			reply = PutTagCommitReply{OK: false, Reason: err.Error()}
			return
		}
		s.tagIdx = tagindex.Replace(s.tagIdx, tagName, tagindex.Entry{Timestamp: timestamp, Volume: volName})
		entry, ok := tagindex.Lookup(s.tagIdx, tagName)
		debug.Assert(ok && entry.Timestamp == timestamp && entry.Volume == volName,
			"post-commit index entry must match the committed (timestamp, volume)")
		reply = PutTagCommitReply{OK: true, URL: url}
	})
	return reply
}

// HandleDied removes the dead handle from both admission queues. Removing
// from the queue it was never in is a no-op; it is therefore safe to call
// unconditionally on every handle-death signal without knowing which queue
// (if either) the handle belonged to.
func (c *Coordinator) HandleDied(handle string) {
	c.submit(func(*state) {
		c.putQueue.Remove(handle)
		c.getQueue.Remove(handle)
	})
}

// CastVolumes merges a disk-space monitor snapshot into the registry. This is
// a fire-and-forget cast: a full mailbox is a fatal internal error, not a
// retryable condition.
func (c *Coordinator) CastVolumes(vols fs.Volumes) {
	c.sendCast(func(s *state) { s.volumes = fs.Merge(s.volumes, vols) })
}

// CastTagIndex replaces the tag index wholesale with a freshly-built one
// from the tag-index refresher. Because commits and refreshes are both
// serialized through the coordinator, a commit can never be clobbered by a
// stale refresh: the refresher rebuilds from disk, which already reflects
// any completed rename.
func (c *Coordinator) CastTagIndex(idx tagindex.Index) {
	c.sendCast(func(s *state) { s.tagIdx = idx })
}

func (c *Coordinator) sendCast(cc cast) {
	select {
	case c.castCh <- cc:
	default:
		logging.Fatalf("fatal: %v", castFull{})
	}
}

func errNodeNotInCommitMap(nodeName string) error {
	return &nodeNotInCommitMapErr{nodeName: nodeName}
}

type nodeNotInCommitMapErr struct{ nodeName string }

func (e *nodeNotInCommitMapErr) Error() string {
	return "this node (" + e.nodeName + ") is not named in the commit map"
}
