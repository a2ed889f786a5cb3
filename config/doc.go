// Copyright 2025 Poiesic Systems
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

// Package config holds the configuration of a corpusvec training job.
//
// A Config is built from Default, optionally overlaid with a TOML or YAML
// file by LoadFile, and finally adjusted with Options (usually derived from
// command line flags):
//
//	cfg, err := config.LoadFile("corpusvec.toml")
//	if err != nil {
//	    return err
//	}
//	cfg.Apply(config.WithEndpoint("http://solr:8983/solr/pubmed"))
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// Durations are written as strings such as "20s" or "1m30s" in both file
// formats.
package config
