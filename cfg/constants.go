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

package cfg

const (
	// EnvPrefix is the prefix viper uses for environment-variable
	// overrides, e.g. RINGLOAD_WORKERS_N_WORKERS.
	EnvPrefix = "RINGLOAD"

	// ConfigFileName is the base name of the loader's config file
	// (ringload.yaml). initConfig does not search for it: without a
	// --config-file flag no config file is read.
	ConfigFileName = "ringload"
)
