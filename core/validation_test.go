package core

import (
	"errors"
	"testing"
)

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		r       Range
		wantErr error
	}{
		{name: "valid range", r: Range{0, 20}},
		{name: "empty range", r: Range{20, 20}},
		{name: "negative start", r: Range{-1, 20}, wantErr: ErrNegativeOffset},
		{name: "end before start", r: Range{20, 10}, wantErr: ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.r)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRange() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRange() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name    string
		page    *Page
		wantErr bool
	}{
		{name: "valid page", page: &Page{Offset: 0, Size: 2, Documents: []Document{{}, {}}}},
		{name: "short last page", page: &Page{Offset: 40, Size: 20, Documents: []Document{{}}}},
		{name: "nil page", page: nil, wantErr: true},
		{name: "negative offset", page: &Page{Offset: -1, Size: 2}, wantErr: true},
		{name: "zero size", page: &Page{Offset: 0, Size: 0}, wantErr: true},
		{name: "too many documents", page: &Page{Offset: 0, Size: 1, Documents: []Document{{}, {}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePage(tt.page)
			if tt.wantErr && err == nil {
				t.Error("ValidatePage() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidatePage() error = %v, want nil", err)
			}
		})
	}
}

func TestValidateStreamState(t *testing.T) {
	tests := []struct {
		name    string
		state   StreamState
		total   int
		wantErr bool
	}{
		{name: "fresh", state: StreamState{}, total: 100},
		{name: "in flight", state: StreamState{Offset: 60, Cutoff: 40}, total: 100},
		{name: "done", state: StreamState{Offset: 100, Cutoff: 100, Done: true}, total: 100},
		{name: "cutoff ahead of offset", state: StreamState{Offset: 20, Cutoff: 40}, total: 100, wantErr: true},
		{name: "offset past total", state: StreamState{Offset: 120, Cutoff: 100}, total: 100, wantErr: true},
		{name: "done before total", state: StreamState{Offset: 40, Cutoff: 40, Done: true}, total: 100, wantErr: true},
		{name: "negative cutoff", state: StreamState{Offset: 0, Cutoff: -1}, total: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStreamState(tt.state, tt.total)
			if tt.wantErr && err == nil {
				t.Error("ValidateStreamState() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateStreamState() error = %v, want nil", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidState) {
				t.Errorf("ValidateStreamState() error = %v, want %v", err, ErrInvalidState)
			}
		})
	}
}

func TestValidateCheckpoint(t *testing.T) {
	tests := []struct {
		name    string
		cp      *Checkpoint
		wantErr error
	}{
		{name: "valid checkpoint", cp: &Checkpoint{Key: "abc", Offset: 500, VocabularyBuilt: true}},
		{name: "zero checkpoint", cp: &Checkpoint{Key: "abc"}},
		{name: "nil checkpoint", cp: nil, wantErr: ErrInvalidCheckpoint},
		{name: "empty key", cp: &Checkpoint{Offset: 1}, wantErr: ErrEmptyKey},
		{name: "negative offset", cp: &Checkpoint{Key: "abc", Offset: -5}, wantErr: ErrNegativeOffset},
		{name: "completed without vocabulary", cp: &Checkpoint{Key: "abc", Completed: true}, wantErr: ErrInvalidCheckpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCheckpoint(tt.cp)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCheckpoint() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCheckpoint() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
