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

package loader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ringload/ringload/internal/logger"
)

// Start spawns the reader and runs the responder, per spec.md §6's
// start(state) → never-returns contract: it only returns once ctx is
// cancelled (graceful shutdown) or one of the two threads hits a fatal
// error (spec.md §7), whichever comes first.
func Start(ctx context.Context, state *State) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return NewReader(state).Run(ctx)
	})
	g.Go(func() error {
		err := NewResponder(state).Run(ctx)
		if err != nil {
			logger.Errorf("loader: responder exiting: %v", err)
		}
		return err
	})

	return g.Wait()
}
