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

// Package metrics is the observability surface named in SPEC_FULL.md §12:
// per-worker queue depth gauges, a completions counter, a completion-error
// counter, and a reorder-batch-size histogram, recorded through OpenCensus
// and exported to Prometheus. Observability was never a spec.md Non-goal.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	prometheus "contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/ringload/ringload/internal/logger"
)

// WorkerKey tags a measurement with the worker queue it concerns.
var WorkerKey = tag.MustNewKey("worker")

// ListKey tags a queue-depth measurement with which of the three FIFO
// lists it concerns.
var ListKey = tag.MustNewKey("list")

var (
	queueDepthMeasure      = stats.Int64("ringload/queue_depth", "Entries currently on a worker's free/ready/completed list.", stats.UnitDimensionless)
	completionsMeasure     = stats.Int64("ringload/completions", "Completions delivered by the responder.", stats.UnitDimensionless)
	completionErrsMeasure  = stats.Int64("ringload/completion_errors", "Completions with a negative kernel result.", stats.UnitDimensionless)
	reorderBatchSizeMeasure = stats.Float64("ringload/reorder_batch_size", "Size of each reorder batch submitted to the ring.", stats.UnitDimensionless)
)

var registerOnce sync.Once
var registerErr error

// Register installs the OpenCensus views backing every measure above. Call
// once during loader startup, before the reader/responder goroutines start
// recording.
func Register() error {
	registerOnce.Do(func() {
		registerErr = view.Register(
			&view.View{
				Name:        "ringload/queue_depth",
				Measure:     queueDepthMeasure,
				Description: "Entries currently on a worker's free/ready/completed list.",
				Aggregation: view.LastValue(),
				TagKeys:     []tag.Key{WorkerKey, ListKey},
			},
			&view.View{
				Name:        "ringload/completions",
				Measure:     completionsMeasure,
				Description: "Cumulative completions delivered by the responder.",
				Aggregation: view.Sum(),
				TagKeys:     []tag.Key{WorkerKey},
			},
			&view.View{
				Name:        "ringload/completion_errors",
				Measure:     completionErrsMeasure,
				Description: "Cumulative completions with a negative kernel result.",
				Aggregation: view.Sum(),
				TagKeys:     []tag.Key{WorkerKey},
			},
			&view.View{
				Name:        "ringload/reorder_batch_size",
				Measure:     reorderBatchSizeMeasure,
				Description: "Distribution of reorder batch sizes submitted to the ring.",
				Aggregation: view.Distribution(1, 2, 4, 8, 16, 32, 64, 128, 256),
			},
		)
	})
	return registerErr
}

// Serve registers a Prometheus exporter as both an OpenCensus view exporter
// and an HTTP handler, and serves it on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	exporter, err := prometheus.NewExporter(prometheus.Options{Namespace: "ringload"})
	if err != nil {
		return fmt.Errorf("metrics: new prometheus exporter: %w", err)
	}
	view.RegisterExporter(exporter)
	defer view.UnregisterExporter(exporter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = srv.Close()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics: serve %s: %w", addr, err)
		}
		return nil
	}
}

// QueueDepth records the current length of one worker's list.
func QueueDepth(ctx context.Context, workerID int, list string, depth int) {
	record(ctx, queueDepthMeasure.M(int64(depth)), WorkerKey, fmt.Sprintf("%d", workerID), ListKey, list)
}

// Completion records one responder completion, successful or not.
func Completion(ctx context.Context, workerID int, failed bool) {
	workerTag := fmt.Sprintf("%d", workerID)
	record(ctx, completionsMeasure.M(1), WorkerKey, workerTag)
	if failed {
		record(ctx, completionErrsMeasure.M(1), WorkerKey, workerTag)
	}
}

// ReorderBatch records the size of one reorder batch submitted to the ring.
func ReorderBatch(ctx context.Context, n int) {
	if err := stats.RecordWithTags(ctx, nil, reorderBatchSizeMeasure.M(float64(n))); err != nil {
		logger.Warnf("metrics: record reorder batch size: %v", err)
	}
}

func record(ctx context.Context, m stats.Measurement, k1 tag.Key, v1 string, rest ...any) {
	mutators := []tag.Mutator{tag.Upsert(k1, v1)}
	for i := 0; i+1 < len(rest); i += 2 {
		key, ok1 := rest[i].(tag.Key)
		val, ok2 := rest[i+1].(string)
		if ok1 && ok2 {
			mutators = append(mutators, tag.Upsert(key, val))
		}
	}
	if err := stats.RecordWithTags(ctx, mutators, m); err != nil {
		logger.Warnf("metrics: record: %v", err)
	}
}
