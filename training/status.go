package training

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/poiesic/corpusvec/config"
	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/storage"
)

// Status is the persisted state of a job.
type Status struct {
	Checkpoint core.Checkpoint
	Phase      Phase

	// Resumable is set when the next run continues from Checkpoint.
	Resumable bool

	ModelPath          string
	ModelExists        bool
	IntermediatePath   string
	IntermediateExists bool
}

// LoadStatus reports the state of the job described by cfg.
func LoadStatus(ctx context.Context, repo storage.CheckpointRepository, cfg *config.Config) (*Status, error) {
	cp, err := repo.LoadCheckpoint(ctx, cfg.CorpusKey())
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	st := &Status{
		Checkpoint:         *cp,
		Phase:              PhaseOf(cp),
		ModelPath:          cfg.ModelPath(),
		ModelExists:        fileExists(cfg.ModelPath()),
		IntermediatePath:   cfg.CheckpointModelPath(),
		IntermediateExists: fileExists(cfg.CheckpointModelPath()),
	}
	st.Resumable = !cp.Completed && !cp.IsZero() && st.IntermediateExists
	return st, nil
}

// Reset deletes the checkpoint and the intermediate model of the job
// described by cfg. The final model is kept.
func Reset(ctx context.Context, repo storage.CheckpointRepository, cfg *config.Config) error {
	if err := repo.DeleteCheckpoint(ctx, cfg.CorpusKey()); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	if err := os.Remove(cfg.CheckpointModelPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove intermediate model: %w", err)
	}
	return nil
}
