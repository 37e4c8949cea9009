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

package reorder

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// gMutex serializes writes to the debug LBA-pattern file so concurrent
// DumpGraphToFile calls never interleave their output.
var gMutex sync.Mutex

// lbaRange is a single staged entry's physical-block span, in LBA*blockSize
// units, as seen by the visualizer.
type lbaRange struct {
	Start int64
	End   int64
}

func (r lbaRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

func (r lbaRange) Length() int64 {
	return r.End - r.Start
}

// Visualizer renders the physical-block access pattern of a drained batch
// in the order its entries were staged, before Drain sorts them, so a human
// can see how scattered the staged entries were. The sorted order is not
// rendered.
// It is a diagnostic only, gated by cfg.Debug; it never affects dispatch.
type Visualizer struct {
	ranges      []lbaRange
	maxOffset   int64
	scaleUnit   int64
	graphWidth  int
	description string
}

// NewVisualizer creates a visualizer with a 4KB scale unit and 100-column
// graph width, matching this loader's block size.
func NewVisualizer(description string) *Visualizer {
	return &Visualizer{
		scaleUnit:   4 * 1024,
		graphWidth:  100,
		description: description,
	}
}

// AcceptLBA records one staged entry's physical span. Adjacent spans are
// merged so a fully sequential batch collapses to a single bar.
func (v *Visualizer) AcceptLBA(lba int64, length int64) {
	if length <= 0 {
		return
	}
	start, end := lba, lba+length
	if n := len(v.ranges); n > 0 && v.ranges[n-1].End == start {
		v.ranges[n-1].End = end
	} else {
		v.ranges = append(v.ranges, lbaRange{Start: start, End: end})
	}
	if end > v.maxOffset {
		v.maxOffset = end
	}
}

// Reset clears the visualizer so it can be reused for the next batch.
func (v *Visualizer) Reset() {
	v.ranges = v.ranges[:0]
	v.maxOffset = 0
}

// DumpGraph renders the recorded spans as an ASCII bar graph plus a
// sequential/random classification, in batch order (not sorted by offset —
// that is the point: it shows dispatch order against physical position).
func (v *Visualizer) DumpGraph() string {
	if len(v.ranges) == 0 {
		return "no staged entries in this batch\n"
	}

	var b strings.Builder
	if v.description != "" {
		fmt.Fprintf(&b, "batch: %s\n", v.description)
	}
	fmt.Fprintf(&b, "entries: %d, max offset: %d bytes (%.2f %s)\n\n",
		len(v.ranges), v.maxOffset, float64(v.maxOffset)/float64(v.scaleUnit), v.scaleUnitAbbrev())

	scale := float64(v.maxOffset) / float64(v.graphWidth)
	if scale < 1 {
		scale = 1
	}
	b.WriteString(strings.Repeat("-", v.graphWidth+10))
	b.WriteString("\n")
	for i, r := range v.ranges {
		b.WriteString(v.renderRow(i, r, scale))
		b.WriteString("\n")
	}
	b.WriteString("\npattern: ")
	b.WriteString(v.classify())
	b.WriteString("\n")
	return b.String()
}

func (v *Visualizer) renderRow(index int, r lbaRange, scale float64) string {
	start := int(float64(r.Start) / scale)
	end := int(float64(r.End) / scale)
	if start >= v.graphWidth {
		start = v.graphWidth - 1
	}
	if end >= v.graphWidth {
		end = v.graphWidth - 1
	}
	if end <= start {
		end = start + 1
	}

	var row strings.Builder
	fmt.Fprintf(&row, "%4d | ", index)
	for i := 0; i < v.graphWidth; i++ {
		if i >= start && i < end {
			row.WriteString("#")
		} else {
			row.WriteString(" ")
		}
	}
	fmt.Fprintf(&row, " | %s (len %d)", r.String(), r.Length())
	return row.String()
}

// classify reports whether the batch, in dispatch order, reads the disk
// sequentially, with gaps, or out of order — the same question dispatch_n
// and the idle-drain threshold exist to answer favorably.
func (v *Visualizer) classify() string {
	if len(v.ranges) <= 1 {
		return "insufficient data"
	}
	sorted := make([]lbaRange, len(v.ranges))
	copy(sorted, v.ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	inOrder := true
	gaps := 0
	for i := range v.ranges {
		if v.ranges[i] != sorted[i] {
			inOrder = false
		}
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start > sorted[i-1].End {
			gaps++
		}
	}
	switch {
	case inOrder && gaps == 0:
		return "sequential"
	case inOrder:
		return fmt.Sprintf("sequential with gaps (%d)", gaps)
	default:
		return fmt.Sprintf("out of dispatch order (gaps: %d)", gaps)
	}
}

func (v *Visualizer) scaleUnitAbbrev() string {
	switch v.scaleUnit {
	case 1:
		return "B"
	case 1024:
		return "K"
	case 1024 * 1024:
		return "M"
	default:
		return "U"
	}
}

// DumpGraphToFile appends the rendered graph to filePath, creating it if
// necessary. Concurrent callers are serialized so output lines never
// interleave.
func (v *Visualizer) DumpGraphToFile(filePath string) error {
	out := v.DumpGraph()

	gMutex.Lock()
	defer gMutex.Unlock()

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(out); err != nil {
		return fmt.Errorf("write %s: %w", filePath, err)
	}
	return nil
}
