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

// Package embed defines the word-vector trainer contract and provides a
// random-indexing implementation of it.
//
// Random indexing assigns every vocabulary word a fixed, sparse, ternary
// index vector derived from a hash of the word. Training adds the index
// vectors of the words around each occurrence to that word's context
// vector, so words that share neighbours end up pointing the same way.
// Training is incremental: Update can be called once per corpus pass, or
// several times for a pass that was interrupted and resumed.
//
// Models are stored as a mus-go encoded record compressed with zstd.
package embed
