package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/poiesic/corpusvec/analysis"
	"github.com/poiesic/corpusvec/config"
	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/embed"
	"github.com/poiesic/corpusvec/index"
	"github.com/poiesic/corpusvec/storage"
	"github.com/poiesic/corpusvec/stream"
)

// Phase is the pass a training job is in.
type Phase int

const (
	PhaseVocabulary Phase = iota
	PhaseTraining
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseVocabulary:
		return "vocabulary"
	case PhaseTraining:
		return "training"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseOf returns the phase a checkpoint resumes in.
func PhaseOf(cp *core.Checkpoint) Phase {
	switch {
	case cp.Completed:
		return PhaseFinished
	case cp.VocabularyBuilt:
		return PhaseTraining
	default:
		return PhaseVocabulary
	}
}

// Result describes the outcome of one run.
type Result struct {
	RunID string

	// Phase is where the job stands after the run.
	Phase Phase

	// Completed is set once the final model was written.
	Completed bool

	// Skipped is set when the job had already completed and nothing ran.
	Skipped bool

	// Interrupted is set when a pass stopped before the end of the corpus.
	// Offset is then the resume point saved in the checkpoint and Cause
	// tells why the pass stopped.
	Interrupted bool
	Offset      int64
	Cause       error

	// Total is the corpus size reported by the index.
	Total int

	// ModelPath is the final model when Completed, the intermediate model
	// when Interrupted.
	ModelPath string
}

// NewTrainerFunc creates an untrained model.
type NewTrainerFunc func(params embed.Params) (embed.Trainer, error)

// LoadTrainerFunc restores an intermediate model.
type LoadTrainerFunc func(path string) (embed.Trainer, error)

// Driver runs training jobs described by a configuration.
type Driver struct {
	dialer   index.Dialer
	repo     storage.CheckpointRepository
	cfg      *config.Config
	analyzer stream.Analyzer[[]string]

	newTrainer  NewTrainerFunc
	loadTrainer LoadTrainerFunc

	force          bool
	progress       io.Writer
	reportInterval int
	streamOpts     []stream.Option
	logger         *slog.Logger
}

// Option is a functional option for configuring a Driver.
type Option func(*Driver)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
	}
}

// WithForce retrains a job that has already completed.
func WithForce(force bool) Option {
	return func(d *Driver) {
		d.force = force
	}
}

// WithProgress reports pass progress to w every reportInterval documents.
// A nil writer disables progress output, which is the default.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(d *Driver) {
		d.progress = w
		d.reportInterval = reportInterval
	}
}

// WithAnalyzer replaces the sentence tokenizer built from the configuration.
func WithAnalyzer(a stream.Analyzer[[]string]) Option {
	return func(d *Driver) {
		d.analyzer = a
	}
}

// WithTrainer replaces the random-indexing model.
func WithTrainer(newFn NewTrainerFunc, loadFn LoadTrainerFunc) Option {
	return func(d *Driver) {
		if newFn != nil {
			d.newTrainer = newFn
		}
		if loadFn != nil {
			d.loadTrainer = loadFn
		}
	}
}

// WithStreamOptions adds options to every stream the driver opens.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(d *Driver) {
		d.streamOpts = append(d.streamOpts, opts...)
	}
}

// NewDriver creates a driver for the job described by cfg.
func NewDriver(dialer index.Dialer, repo storage.CheckpointRepository, cfg *config.Config, opts ...Option) (*Driver, error) {
	if dialer == nil {
		return nil, ErrDialerRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		dialer: dialer,
		repo:   repo,
		cfg:    cfg,
		newTrainer: func(params embed.Params) (embed.Trainer, error) {
			return embed.NewModel(params)
		},
		loadTrainer: func(path string) (embed.Trainer, error) {
			return embed.LoadModel(path)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "training")

	if d.analyzer == nil {
		tokOpts := append(cfg.TokenizerOptions(), analysis.WithLogger(d.logger))
		tokenizer, err := analysis.NewSentenceTokenizer(cfg.Analysis.Field, tokOpts...)
		if err != nil {
			return nil, err
		}
		d.analyzer = tokenizer
	}

	return d, nil
}

// run is the state of one Run call.
type run struct {
	id      string
	logger  *slog.Logger
	fetcher *index.Fetcher
	trainer embed.Trainer
	cp      core.Checkpoint
	total   int
}

// Run executes the job until it completes or a pass is interrupted.
//
// An interrupted pass is not an error: the intermediate model and the
// checkpoint are saved and reported in the Result. Errors are returned
// when a pass cannot start, for instance when the index cannot be counted,
// and when saving state fails.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	r, res, err := d.prepare(ctx)
	if err != nil || res != nil {
		return res, err
	}

	if !r.cp.VocabularyBuilt {
		res, err := d.vocabularyPass(ctx, r)
		if err != nil || res != nil {
			return res, err
		}
	}
	return d.trainingPass(ctx, r)
}

// prepare loads the checkpoint and the model it references. It returns a
// Result when there is nothing to do.
func (d *Driver) prepare(ctx context.Context) (*run, *Result, error) {
	id := uuid.NewString()
	r := &run{
		id:     id,
		logger: d.logger.With("run", id),
	}

	key := d.cfg.CorpusKey()
	cp, err := d.repo.LoadCheckpoint(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}
	r.cp = *cp

	if r.cp.Completed {
		if !d.force && fileExists(d.cfg.ModelPath()) {
			r.logger.Info("training already completed", "model", d.cfg.ModelPath())
			return nil, &Result{
				RunID:     id,
				Phase:     PhaseFinished,
				Completed: true,
				Skipped:   true,
				Offset:    r.cp.Offset,
				ModelPath: d.cfg.ModelPath(),
			}, nil
		}
		r.logger.Info("retraining completed corpus", "force", d.force)
		r.cp = core.Checkpoint{Key: key}
	}

	if !r.cp.IsZero() {
		path := d.cfg.CheckpointModelPath()
		if fileExists(path) {
			trainer, err := d.loadTrainer(path)
			if err == nil {
				r.trainer = trainer
				r.logger.Info("resuming", "phase", PhaseOf(&r.cp), "offset", r.cp.Offset, "model", path)
			} else {
				r.logger.Warn("cannot load intermediate model, starting over", "model", path, "err", err)
			}
		} else {
			r.logger.Warn("checkpoint without intermediate model, starting over", "model", path, "offset", r.cp.Offset)
		}
		if r.trainer == nil {
			r.cp = core.Checkpoint{Key: key}
		}
	}

	if r.trainer == nil {
		trainer, err := d.newTrainer(d.cfg.ModelParams())
		if err != nil {
			return nil, nil, fmt.Errorf("create model: %w", err)
		}
		r.trainer = trainer
	}

	opts := append(d.cfg.FetcherOptions(), index.WithFetcherLogger(r.logger))
	r.fetcher, err = index.NewFetcher(d.dialer, opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, nil, nil
}

// vocabularyPass builds the vocabulary from the checkpoint offset. It
// returns a Result only when the pass was interrupted.
func (d *Driver) vocabularyPass(ctx context.Context, r *run) (*Result, error) {
	offset := int(r.cp.Offset)
	s, tracker, err := d.openStream(ctx, r, PhaseVocabulary, offset)
	if err != nil {
		return nil, err
	}

	r.logger.Info("building vocabulary", "offset", offset, "total", s.Total())
	buildErr := r.trainer.BuildVocabulary(ctx, stream.Analyze(ctx, s, d.analyzer), offset > 0)
	done := s.State().Done && buildErr == nil
	if tracker != nil {
		tracker.Finish(done)
	}

	if !done {
		return d.interrupt(ctx, r, s, PhaseVocabulary, buildErr)
	}

	r.logger.Info("vocabulary built", "total", s.Total())
	r.cp.VocabularyBuilt = true
	r.cp.Offset = 0
	return nil, nil
}

// trainingPass trains from the checkpoint offset, or from the start of the
// corpus right after a vocabulary pass.
func (d *Driver) trainingPass(ctx context.Context, r *run) (*Result, error) {
	offset := int(r.cp.Offset)
	s, tracker, err := d.openStream(ctx, r, PhaseTraining, offset)
	if err != nil {
		return nil, err
	}

	r.logger.Info("training", "offset", offset, "total", s.Total())
	updateErr := r.trainer.Update(ctx, stream.Analyze(ctx, s, d.analyzer))
	done := s.State().Done && updateErr == nil
	if tracker != nil {
		tracker.Finish(done)
	}

	if errors.Is(updateErr, embed.ErrEmptyVocabulary) {
		return nil, fmt.Errorf("train on %d documents: %w", s.Total(), updateErr)
	}
	if !done {
		return d.interrupt(ctx, r, s, PhaseTraining, updateErr)
	}
	return d.finish(ctx, r)
}

// openStream counts the corpus and returns a stream starting at offset.
func (d *Driver) openStream(ctx context.Context, r *run, phase Phase, offset int) (*stream.Stream, *ProgressTracker, error) {
	opts := append([]stream.Option{stream.WithLogger(r.logger.With("phase", phase.String()))}, d.streamOpts...)

	var tracker *ProgressTracker
	if d.progress != nil {
		tracker = NewProgressTracker(d.progress, phase.String(), d.reportInterval)
		opts = append(opts, stream.WithProgress(tracker))
	}

	s, err := stream.New(ctx, r.fetcher, d.cfg.StreamConfig(offset), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s stream: %w", phase, err)
	}
	r.total = s.Total()
	if tracker != nil {
		tracker.Start(s.Total(), s.State().Offset)
	}
	return s, tracker, nil
}

// interrupt saves the intermediate model, then the checkpoint that
// references it.
func (d *Driver) interrupt(ctx context.Context, r *run, s *stream.Stream, phase Phase, cause error) (*Result, error) {
	if cause == nil {
		cause = s.Err()
	}
	if cause == nil {
		cause = ctx.Err()
	}

	// State is persisted even when ctx was canceled.
	saveCtx := context.WithoutCancel(ctx)

	path := d.cfg.CheckpointModelPath()
	if err := r.trainer.Save(path); err != nil {
		return nil, fmt.Errorf("save intermediate model: %w", err)
	}

	r.cp.Offset = int64(s.State().Cutoff)
	r.cp.VocabularyBuilt = phase == PhaseTraining
	r.cp.Completed = false
	if err := d.repo.SaveCheckpoint(saveCtx, &r.cp); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}

	r.logger.Warn("training interrupted",
		"phase", phase, "resume_offset", r.cp.Offset, "total", s.Total(), "model", path, "err", cause)
	return &Result{
		RunID:       r.id,
		Phase:       phase,
		Interrupted: true,
		Offset:      r.cp.Offset,
		Cause:       cause,
		Total:       s.Total(),
		ModelPath:   path,
	}, nil
}

// finish saves the final model, marks the checkpoint completed and drops
// the intermediate model.
func (d *Driver) finish(ctx context.Context, r *run) (*Result, error) {
	saveCtx := context.WithoutCancel(ctx)

	path := d.cfg.ModelPath()
	if err := r.trainer.Save(path); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	r.cp.Offset = int64(r.total)
	r.cp.VocabularyBuilt = true
	r.cp.Completed = true
	if err := d.repo.SaveCheckpoint(saveCtx, &r.cp); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}

	intermediate := d.cfg.CheckpointModelPath()
	if err := os.Remove(intermediate); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("cannot remove intermediate model", "model", intermediate, "err", err)
	}

	r.logger.Info("training complete", "model", path, "total", r.total)
	return &Result{
		RunID:     r.id,
		Phase:     PhaseFinished,
		Completed: true,
		Offset:    r.cp.Offset,
		Total:     r.total,
		ModelPath: path,
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
