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

package loader

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fibmap is FIBMAP from linux/fs.h (_IO(0x00, 1)): given a logical block
// number in the passed int, the kernel overwrites it with the
// corresponding physical block number on the underlying device.
const fibmap = 0x1

// blockSize4K is the logical block size assumed for the FIBMAP query; good
// enough for a seek-order hint, which tolerates being approximate.
const blockSize4K = 4096

// querySize returns a file's size in bytes: st_size for a regular file,
// the device's reported size for a block device. Anything else is an
// error — spec.md §4.3 step 5 treats other file types as error.
func querySize(fd int) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, fmt.Errorf("fstat: %w", err)
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return st.Size, nil
	case unix.S_IFBLK:
		var size uint64
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
		if errno != 0 {
			return 0, fmt.Errorf("ioctl BLKGETSIZE64: %w", errno)
		}
		return int64(size), nil
	default:
		return 0, fmt.Errorf("unsupported file type (mode %#o)", st.Mode&unix.S_IFMT)
	}
}

// roundUp4K rounds n up to the next 4 KiB boundary, per spec.md §4.3's
// "Why rounding to 4 KiB" rationale (O_DIRECT alignment). A zero-byte file
// still needs a mapping to land a (zero-length) read into, so it rounds up
// to one full block rather than staying at zero — spec.md §8's "File of
// size 0" case spells out the 4096-byte result explicitly.
func roundUp4K(n int64) int64 {
	if n == 0 {
		return blockSize4K
	}
	const mask = blockSize4K - 1
	return (n + mask) &^ mask
}

// firstExtentLBA asks FIBMAP for the physical block backing the file's
// first logical block. Failure is non-fatal per spec.md §4.3 step 6: the
// caller leaves lba at 0 and proceeds.
func firstExtentLBA(fd int) (uint64, bool) {
	block := 0
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), fibmap, uintptr(unsafe.Pointer(&block)))
	if errno != 0 || block < 0 {
		return 0, false
	}
	return uint64(block), true
}
