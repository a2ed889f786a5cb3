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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/corpusvec/core"
)

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, CheckpointMUS.Size(*checkpoint))
	CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, n, err := CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: checkpoint: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: checkpoint: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &checkpoint, nil
}

// CheckpointMUS is the mus serializer of core.Checkpoint.
// Field order: Key, Offset, VocabularyBuilt, Completed, UpdatedAt (Unix micro).
var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v core.Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Key, bs)
	n += varint.Int64.Marshal(v.Offset, bs[n:])
	n += ord.Bool.Marshal(v.VocabularyBuilt, bs[n:])
	n += ord.Bool.Marshal(v.Completed, bs[n:])
	return n + varint.Int64.Marshal(unixMicro(v.UpdatedAt), bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v core.Checkpoint, n int, err error) {
	v.Key, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Offset, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.VocabularyBuilt, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Completed, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if micros != 0 {
		v.UpdatedAt = time.UnixMicro(micros).UTC()
	}
	return
}

func (s checkpointMUS) Size(v core.Checkpoint) (size int) {
	size = ord.String.Size(v.Key)
	size += varint.Int64.Size(v.Offset)
	size += ord.Bool.Size(v.VocabularyBuilt)
	size += ord.Bool.Size(v.Completed)
	return size + varint.Int64.Size(unixMicro(v.UpdatedAt))
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
