// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"container/heap"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
)

var latestProcessedSeqKey = []byte("latestProcessedSeq")

// Checkpoint tracks the event sequence number a worker has fully processed.
// Events may finish out of order; a sequence number is committed only once
// every earlier one has been staged.
type Checkpoint struct {
	logger       log.Logger
	db           database.Database
	worker       string
	committedSeq uint64
	pending      *uint64Heap
	// dirty is set when committedSeq changed since the last write
	dirty bool
	lock  sync.Mutex
}

// NewCheckpoint resumes from the sequence number stored in db for worker
func NewCheckpoint(logger log.Logger, db database.Database, worker string) (*Checkpoint, error) {
	h := &uint64Heap{}
	heap.Init(h)

	var stored uint64
	b, err := db.Get(latestProcessedSeqKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		logger.Error("Failed to get latest processed event",
			log.String("worker", worker),
			log.Err(err),
		)
		return nil, fmt.Errorf("failed to get the latest processed event: %w", err)
	case len(b) != 8:
		return nil, fmt.Errorf("malformed checkpoint of %s: %d bytes", worker, len(b))
	default:
		stored = binary.BigEndian.Uint64(b)
	}

	logger.Info("Creating checkpoint",
		log.String("worker", worker),
		log.Uint64("committedSeq", stored),
	)
	return &Checkpoint{
		logger:       logger,
		db:           db,
		worker:       worker,
		committedSeq: stored,
		pending:      h,
	}, nil
}

// Committed returns the highest sequence number below which every event has
// been processed
func (c *Checkpoint) Committed() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.committedSeq
}

// Stage marks seq processed. Sequence numbers that are not exactly one above
// the committed one are held in memory until the gap closes.
func (c *Checkpoint) Stage(seq uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if seq <= c.committedSeq {
		c.logger.Debug("Attempting to stage an already committed event. Skipping.",
			log.String("worker", c.worker),
			log.Uint64("seq", seq),
			log.Uint64("committedSeq", c.committedSeq),
		)
		return
	}

	heap.Push(c.pending, seq)
	for c.pending.Len() > 0 && c.pending.Peek() == c.committedSeq+1 {
		c.committedSeq = heap.Pop(c.pending).(uint64)
		c.dirty = true
	}
}

// Write persists the committed sequence number if it changed
func (c *Checkpoint) Write() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.committedSeq == 0 || !c.dirty {
		return nil
	}
	if err := c.db.Put(latestProcessedSeqKey, binary.BigEndian.AppendUint64(nil, c.committedSeq)); err != nil {
		c.logger.Error("Failed to write latest processed event",
			log.String("worker", c.worker),
			log.Err(err),
		)
		return err
	}
	c.dirty = false
	return nil
}

// uint64Heap is a min-heap of sequence numbers
type uint64Heap []uint64

func (h uint64Heap) Len() int           { return len(h) }
func (h uint64Heap) Less(i, j int) bool { return h[i] < h[j] }
func (h uint64Heap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *uint64Heap) Push(x any) {
	*h = append(*h, x.(uint64))
}

func (h *uint64Heap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h uint64Heap) Peek() uint64 {
	return h[0]
}
