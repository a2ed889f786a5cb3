package storage

import (
	"testing"
	"time"

	"github.com/poiesic/corpusvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

	tests := []struct {
		name string
		cp   core.Checkpoint
	}{
		{"zero", core.Checkpoint{Key: "k"}},
		{"vocabulary pass", core.Checkpoint{Key: core.CorpusKey("http://localhost:8983/solr/pubmed", "*:*"), Offset: 500}},
		{"training pass", core.Checkpoint{Key: "pubmed", Offset: 500, VocabularyBuilt: true, UpdatedAt: now}},
		{"completed", core.Checkpoint{Key: "pubmed", Offset: 27_000_000, VocabularyBuilt: true, Completed: true, UpdatedAt: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalCheckpoint(&tt.cp)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalCheckpoint(data)
			require.NoError(t, err)
			assert.Equal(t, tt.cp, *decoded)
		})
	}
}

func TestUnmarshalCheckpoint_TimestampPrecision(t *testing.T) {
	cp := core.Checkpoint{Key: "k", UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 123456789, time.UTC)}
	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(&cp))
	require.NoError(t, err)
	assert.Equal(t, cp.UpdatedAt.Truncate(time.Microsecond), decoded.UpdatedAt)
}

func TestUnmarshalCheckpoint_Invalid(t *testing.T) {
	valid := MarshalCheckpoint(&core.Checkpoint{Key: "pubmed", Offset: 500, VocabularyBuilt: true})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"truncated", valid[:len(valid)-2]},
		{"trailing bytes", append(append([]byte(nil), valid...), 0x01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCheckpoint(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
