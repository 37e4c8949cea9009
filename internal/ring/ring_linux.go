// Copyright 2025 The Ringload Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

// Package ring is a minimal io_uring binding: just enough submission-queue
// and completion-queue plumbing to submit fixed-size reads and collect
// their results. It is the "kernel submission-ring interface" the spec
// treats as a given; everything here is the mechanism for talking to it.
package ring

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	opRead = 22 // IORING_OP_READ, Linux 5.6+

	enterGetEvents = 1 << 0 // IORING_ENTER_GETEVENTS

	featSingleMmap = 1 << 0 // IORING_FEAT_SINGLE_MMAP
)

// sqe mirrors struct io_uring_sqe for the subset of fields a plain
// fixed-offset read needs.
type sqe struct {
	Opcode      uint8
	Flags       uint8
	IoPrio      uint16
	FD          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	RWFlags     uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFDIn  int32
	_pad        [2]uint64
}

// cqe mirrors struct io_uring_cqe.
type cqe struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

type sqRingOffsets struct {
	Head, Tail, RingMask, RingEntries, Flags, Dropped, Array uint32
	_resv                                                    uint32
	_resv2                                                   uint64
}

type cqRingOffsets struct {
	Head, Tail, RingMask, RingEntries, Overflow, CQEs uint32
	Flags                                              uint32
	_resv                                               uint32
	_resv2                                              uint64
}

type params struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     uint32
	WQFd         uint32
	_resv        [3]uint32
	SQOff        sqRingOffsets
	CQOff        cqRingOffsets
}

// CQE is a completion the caller gets back from WaitCQE: UserData is
// whatever was attached at submission time (in this system, an encoded
// (workerID, slot) pair), Res is the syscall-style result (bytes read, or a
// negative errno).
type CQE struct {
	UserData uint64
	Res      int32
}

// Ring is a single loader-owned io_uring instance: the reader submits into
// it, the responder waits on it. The spec calls this a single-producer/
// single-consumer split against the kernel; nothing here adds a user-level
// lock, matching that.
type Ring struct {
	fd int

	sqRing, cqRing, sqes []byte

	sqHead, sqTail, sqMask, sqArray *uint32
	sqEntries                        []sqe

	cqHead, cqTail, cqMask *uint32
	cqEntries               []cqe

	depth uint32

	// sqFill tracks how many SQEs have been prepared but not yet made
	// visible to the kernel via Submit; it indexes into sqEntries
	// independent of the shared sqTail until the batch is flushed.
	sqFill uint32
}

// New creates an io_uring instance with the given submission/completion
// queue depth (rounded up by the kernel to a power of two).
func New(depth uint32) (*Ring, error) {
	var p params
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(depth), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("ring: io_uring_setup: %w", errno)
	}

	r := &Ring{fd: int(fd), depth: depth}
	if err := r.mapRings(&p); err != nil {
		_ = unix.Close(r.fd)
		return nil, err
	}
	return r, nil
}

func (r *Ring) mapRings(p *params) error {
	sqRingSize := p.SQOff.Array + p.SQEntries*4
	cqRingSize := p.CQOff.CQEs + p.CQEntries*uint32(unsafe.Sizeof(cqe{}))

	singleMmap := p.Features&featSingleMmap != 0
	if singleMmap && cqRingSize > sqRingSize {
		sqRingSize = cqRingSize
	}

	sqRing, err := unix.Mmap(r.fd, 0 /* IORING_OFF_SQ_RING */, int(sqRingSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("ring: mmap sq ring: %w", err)
	}
	r.sqRing = sqRing

	if singleMmap {
		r.cqRing = sqRing
	} else {
		cqRing, err := unix.Mmap(r.fd, 0x8000000000 /* IORING_OFF_CQ_RING */, int(cqRingSize),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			return fmt.Errorf("ring: mmap cq ring: %w", err)
		}
		r.cqRing = cqRing
	}

	sqes, err := unix.Mmap(r.fd, 0x10000000000 /* IORING_OFF_SQES */, int(p.SQEntries)*int(unsafe.Sizeof(sqe{})),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("ring: mmap sqes: %w", err)
	}
	r.sqes = sqes

	base := unsafe.Pointer(&r.sqRing[0])
	r.sqHead = (*uint32)(unsafe.Add(base, p.SQOff.Head))
	r.sqTail = (*uint32)(unsafe.Add(base, p.SQOff.Tail))
	r.sqMask = (*uint32)(unsafe.Add(base, p.SQOff.RingMask))
	r.sqArray = (*uint32)(unsafe.Add(base, p.SQOff.Array))
	r.sqEntries = unsafe.Slice((*sqe)(unsafe.Pointer(&r.sqes[0])), p.SQEntries)

	cbase := unsafe.Pointer(&r.cqRing[0])
	r.cqHead = (*uint32)(unsafe.Add(cbase, p.CQOff.Head))
	r.cqTail = (*uint32)(unsafe.Add(cbase, p.CQOff.Tail))
	r.cqMask = (*uint32)(unsafe.Add(cbase, p.CQOff.RingMask))
	r.cqEntries = unsafe.Slice((*cqe)(unsafe.Add(cbase, p.CQOff.CQEs)), p.CQEntries)

	return nil
}

// PrepareRead stages a read of len(buf) bytes from fd at the given offset
// into buf, tagging it with userData for retrieval from the completion. It
// does not make the kernel aware of the submission; call Submit for that.
// Returns false if the submission queue has no free slots (the caller's
// batch is larger than the ring depth).
func (r *Ring) PrepareRead(fd int, buf []byte, offset int64, userData uint64) bool {
	tail := atomic.LoadUint32(r.sqTail)
	if tail-atomic.LoadUint32(r.sqHead) >= uint32(len(r.sqEntries)) {
		return false
	}
	mask := atomic.LoadUint32(r.sqMask)
	idx := tail & mask

	e := &r.sqEntries[idx]
	*e = sqe{
		Opcode:   opRead,
		FD:       int32(fd),
		Off:      uint64(offset),
		Addr:     uint64(uintptr(unsafe.Pointer(&buf[0]))),
		Len:      uint32(len(buf)),
		UserData: userData,
	}

	arr := unsafe.Slice(r.sqArray, len(r.sqEntries))
	arr[idx] = idx
	atomic.StoreUint32(r.sqTail, tail+1)
	r.sqFill++
	return true
}

// Submit tells the kernel about every SQE prepared since the last Submit
// and returns how many were accepted.
func (r *Ring) Submit() (int, error) {
	n := r.sqFill
	r.sqFill = 0
	if n == 0 {
		return 0, nil
	}
	ret, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd), uintptr(n), 0, 0, 0, 0)
	if errno != 0 {
		return 0, fmt.Errorf("ring: io_uring_enter (submit): %w", errno)
	}
	return int(ret), nil
}

// WaitCQE blocks until at least one completion is available and returns
// the oldest unseen one. Call SeenCQE after processing it.
func (r *Ring) WaitCQE() (CQE, error) {
	for {
		head := atomic.LoadUint32(r.cqHead)
		tail := atomic.LoadUint32(r.cqTail)
		if head != tail {
			mask := atomic.LoadUint32(r.cqMask)
			e := r.cqEntries[head&mask]
			return CQE{UserData: e.UserData, Res: e.Res}, nil
		}
		_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd), 0, 1, uintptr(enterGetEvents), 0, 0)
		if errno != 0 {
			return CQE{}, fmt.Errorf("ring: io_uring_enter (wait): %w", errno)
		}
	}
}

// SeenCQE advances the completion cursor past the entry last returned by
// WaitCQE.
func (r *Ring) SeenCQE() {
	atomic.AddUint32(r.cqHead, 1)
}

// Close tears down the ring's mappings and file descriptor.
func (r *Ring) Close() error {
	if r.sqes != nil {
		_ = unix.Munmap(r.sqes)
	}
	if r.cqRing != nil && &r.cqRing[0] != &r.sqRing[0] {
		_ = unix.Munmap(r.cqRing)
	}
	if r.sqRing != nil {
		_ = unix.Munmap(r.sqRing)
	}
	return unix.Close(r.fd)
}
