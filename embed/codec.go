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

package embed

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

const (
	modelMagic   = "corpusvec/ri"
	modelVersion = 1
)

// Save writes the model to path. The file is written next to path and
// renamed into place, so readers never see a partial model.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	buf := make([]byte, modelMUS.Size(m))
	modelMUS.Marshal(m, buf)
	m.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeCompressed(tmp, buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write model %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync model %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename model %s: %w", path, err)
	}
	return nil
}

func writeCompressed(w io.Writer, data []byte) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// LoadModel reads a model written by Save.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadModelFile, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadModelFile, path, err)
	}

	m, _, err := modelMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadModelFile, path, err)
	}
	return m, nil
}

// modelMUS encodes a Model as:
//
//	magic, version, dim, window, min_count, seed, sentences,
//	n_counts, (word, count)*, n_words, (word, float32*dim)*
//
// Counts are written in word order so equal models encode identically.
var modelMUS = modelSerializer{}

type modelSerializer struct{}

func (modelSerializer) Size(m *Model) (size int) {
	size += ord.String.Size(modelMagic)
	size += varint.Int64.Size(modelVersion)
	size += varint.Int64.Size(int64(m.params.Dim))
	size += varint.Int64.Size(int64(m.params.Window))
	size += varint.Int64.Size(int64(m.params.MinCount))
	size += varint.Uint64.Size(m.params.Seed)
	size += varint.Int64.Size(m.sentences)

	size += varint.Int64.Size(int64(len(m.counts)))
	for word, n := range m.counts {
		size += ord.String.Size(word)
		size += varint.Int64.Size(n)
	}

	size += varint.Int64.Size(int64(len(m.words)))
	for i, word := range m.words {
		size += ord.String.Size(word)
		for _, v := range m.vectors[i] {
			size += varint.Uint32.Size(math.Float32bits(v))
		}
	}
	return size
}

func (modelSerializer) Marshal(m *Model, bs []byte) (n int) {
	n += ord.String.Marshal(modelMagic, bs[n:])
	n += varint.Int64.Marshal(modelVersion, bs[n:])
	n += varint.Int64.Marshal(int64(m.params.Dim), bs[n:])
	n += varint.Int64.Marshal(int64(m.params.Window), bs[n:])
	n += varint.Int64.Marshal(int64(m.params.MinCount), bs[n:])
	n += varint.Uint64.Marshal(m.params.Seed, bs[n:])
	n += varint.Int64.Marshal(m.sentences, bs[n:])

	words := make([]string, 0, len(m.counts))
	for word := range m.counts {
		words = append(words, word)
	}
	sort.Strings(words)
	n += varint.Int64.Marshal(int64(len(words)), bs[n:])
	for _, word := range words {
		n += ord.String.Marshal(word, bs[n:])
		n += varint.Int64.Marshal(m.counts[word], bs[n:])
	}

	n += varint.Int64.Marshal(int64(len(m.words)), bs[n:])
	for i, word := range m.words {
		n += ord.String.Marshal(word, bs[n:])
		for _, v := range m.vectors[i] {
			n += varint.Uint32.Marshal(math.Float32bits(v), bs[n:])
		}
	}
	return n
}

func (modelSerializer) Unmarshal(bs []byte) (m *Model, n int, err error) {
	var (
		str  string
		i64  int64
		read int
	)

	str, read, err = ord.String.Unmarshal(bs[n:])
	n += read
	if err != nil {
		return nil, n, err
	}
	if str != modelMagic {
		return nil, n, fmt.Errorf("unknown format %q", str)
	}
	i64, read, err = varint.Int64.Unmarshal(bs[n:])
	n += read
	if err != nil {
		return nil, n, err
	}
	if i64 != modelVersion {
		return nil, n, fmt.Errorf("unsupported version %d", i64)
	}

	var params Params
	for _, dst := range []*int{&params.Dim, &params.Window, &params.MinCount} {
		i64, read, err = varint.Int64.Unmarshal(bs[n:])
		n += read
		if err != nil {
			return nil, n, err
		}
		*dst = int(i64)
	}
	params.Seed, read, err = varint.Uint64.Unmarshal(bs[n:])
	n += read
	if err != nil {
		return nil, n, err
	}

	m, err = NewModel(params)
	if err != nil {
		return nil, n, err
	}

	m.sentences, read, err = varint.Int64.Unmarshal(bs[n:])
	n += read
	if err != nil {
		return nil, n, err
	}

	count, read, err := unmarshalLen(bs[n:])
	n += read
	if err != nil {
		return nil, n, err
	}
	for range count {
		str, read, err = ord.String.Unmarshal(bs[n:])
		n += read
		if err != nil {
			return nil, n, err
		}
		i64, read, err = varint.Int64.Unmarshal(bs[n:])
		n += read
		if err != nil {
			return nil, n, err
		}
		m.counts[str] = i64
	}

	count, read, err = unmarshalLen(bs[n:])
	n += read
	if err != nil {
		return nil, n, err
	}
	m.words = make([]string, 0, count)
	m.vectors = make([][]float32, 0, count)
	for range count {
		str, read, err = ord.String.Unmarshal(bs[n:])
		n += read
		if err != nil {
			return nil, n, err
		}
		vec := make([]float32, params.Dim)
		for d := range vec {
			var bits uint32
			bits, read, err = varint.Uint32.Unmarshal(bs[n:])
			n += read
			if err != nil {
				return nil, n, err
			}
			vec[d] = math.Float32frombits(bits)
		}
		m.vocab[str] = len(m.words)
		m.words = append(m.words, str)
		m.vectors = append(m.vectors, vec)
	}
	return m, n, nil
}

func unmarshalLen(bs []byte) (int, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	if v < 0 || v > int64(len(bs)) {
		return 0, n, fmt.Errorf("invalid length %d", v)
	}
	return int(v), n, nil
}
