package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/corpusvec/analysis"
	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/embed"
	"github.com/poiesic/corpusvec/index"
	"github.com/poiesic/corpusvec/index/solr"
	"github.com/poiesic/corpusvec/pool"
	"github.com/poiesic/corpusvec/stream"
)

const (
	DefaultEndpoint  = "http://localhost:8983/solr/pubmed"
	DefaultQuery     = "*:*"
	DefaultIDField   = "pmid"
	DefaultTextField = "abstractText"
	DefaultCacheDir  = ".cache"
	DefaultOutputDir = "."
	DefaultLogLevel  = "info"

	// stateDir is the Badger directory below the cache directory.
	stateDir = "state"

	modelExt = ".mdl"

	// checkpointTag marks the intermediate model, which must never share a
	// name with the final model even when both live in one directory.
	checkpointTag = ".ckpt"
)

// Duration is a time.Duration that reads and writes as "20s" in config files.
type Duration time.Duration

// UnmarshalText parses a duration string such as "1m30s".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration in time.Duration notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// IndexConfig selects the remote index and how it is queried.
type IndexConfig struct {
	// Endpoint is the Solr core URL, e.g. "http://localhost:8983/solr/pubmed".
	// Its last path element names the model file.
	Endpoint string `toml:"endpoint" yaml:"endpoint"`

	// Query filters the corpus. Default: "*:*"
	Query string `toml:"query" yaml:"query"`

	// Fields is the field projection requested from the index.
	Fields []string `toml:"fields" yaml:"fields"`

	// Timeout bounds a single request. Default: 10s
	Timeout Duration `toml:"timeout" yaml:"timeout"`

	// MaxTrials is the number of attempts per request and per batch.
	// Negative retries forever, zero fails without trying. Default: -1
	MaxTrials int `toml:"max_trials" yaml:"max_trials"`

	// RetryDelay is the pause between two attempts of one request. Default: 10s
	RetryDelay Duration `toml:"retry_delay" yaml:"retry_delay"`

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"`

	// Burst is the number of requests allowed above RateLimit at once.
	Burst int `toml:"burst" yaml:"burst"`
}

// StreamConfig controls batching and concurrency.
type StreamConfig struct {
	// Interval is the number of documents per batch. Default: 20
	Interval int `toml:"interval" yaml:"interval"`

	// Jobs is the number of sub-ranges per batch. Zero means one per CPU.
	Jobs int `toml:"jobs" yaml:"jobs"`

	// MaxConn caps concurrent requests. Default: 16
	MaxConn int `toml:"max_conn" yaml:"max_conn"`

	// Backoff is the pause before a failed batch is dispatched again. Default: 20s
	Backoff Duration `toml:"backoff" yaml:"backoff"`
}

// AnalysisConfig controls tokenization.
type AnalysisConfig struct {
	// Field is the document field holding the text. Default: "abstractText"
	Field string `toml:"field" yaml:"field"`

	// BatchSize is the number of documents tokenized together. Default: 1000
	BatchSize int `toml:"batch_size" yaml:"batch_size"`

	// Jobs is the tokenizer parallelism. Zero means one per CPU.
	Jobs int `toml:"jobs" yaml:"jobs"`

	// Lowercase folds tokens to lower case. Default: true
	Lowercase bool `toml:"lowercase" yaml:"lowercase"`
}

// ModelConfig holds the word-vector hyperparameters.
type ModelConfig struct {
	Dim      int    `toml:"dim" yaml:"dim"`
	Window   int    `toml:"window" yaml:"window"`
	MinCount int    `toml:"min_count" yaml:"min_count"`
	Seed     uint64 `toml:"seed" yaml:"seed"`
}

// CacheConfig locates intermediate and final artifacts.
type CacheConfig struct {
	// Dir holds the checkpoint store and the intermediate model. Default: ".cache"
	Dir string `toml:"dir" yaml:"dir"`

	// OutputDir receives the final model. Default: "."
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
}

// Config is the complete configuration of a training job.
type Config struct {
	Index    IndexConfig    `toml:"index" yaml:"index"`
	Stream   StreamConfig   `toml:"stream" yaml:"stream"`
	Analysis AnalysisConfig `toml:"analysis" yaml:"analysis"`
	Model    ModelConfig    `toml:"model" yaml:"model"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache"`

	// LogLevel is one of debug, info, warn, error. Default: "info"
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithEndpoint sets the index endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Index.Endpoint = endpoint
	}
}

// WithQuery sets the corpus query.
func WithQuery(query string) Option {
	return func(c *Config) {
		c.Index.Query = query
	}
}

// WithFields sets the field projection.
func WithFields(fields ...string) Option {
	return func(c *Config) {
		c.Index.Fields = fields
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Index.Timeout = Duration(timeout)
	}
}

// WithMaxTrials sets the per-request and per-batch trial budget.
func WithMaxTrials(trials int) Option {
	return func(c *Config) {
		c.Index.MaxTrials = trials
	}
}

// WithRetryDelay sets the pause between request attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.Index.RetryDelay = Duration(delay)
	}
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Config) {
		c.Index.RateLimit = rps
		c.Index.Burst = burst
	}
}

// WithInterval sets the batch size of the stream.
func WithInterval(interval int) Option {
	return func(c *Config) {
		c.Stream.Interval = interval
	}
}

// WithJobs sets both stream and tokenizer parallelism.
func WithJobs(jobs int) Option {
	return func(c *Config) {
		c.Stream.Jobs = jobs
		c.Analysis.Jobs = jobs
	}
}

// WithMaxConn sets the connection cap.
func WithMaxConn(maxConn int) Option {
	return func(c *Config) {
		c.Stream.MaxConn = maxConn
	}
}

// WithBackoff sets the pause before a failed batch is retried.
func WithBackoff(backoff time.Duration) Option {
	return func(c *Config) {
		c.Stream.Backoff = Duration(backoff)
	}
}

// WithTextField sets the field that is tokenized.
func WithTextField(field string) Option {
	return func(c *Config) {
		c.Analysis.Field = field
	}
}

// WithParseBatch sets the tokenizer batch size.
func WithParseBatch(size int) Option {
	return func(c *Config) {
		c.Analysis.BatchSize = size
	}
}

// WithModel sets the word-vector hyperparameters.
func WithModel(params embed.Params) Option {
	return func(c *Config) {
		c.Model = ModelConfig{
			Dim:      params.Dim,
			Window:   params.Window,
			MinCount: params.MinCount,
			Seed:     params.Seed,
		}
	}
}

// WithCacheDir sets the cache directory.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.Cache.Dir = dir
	}
}

// WithOutputDir sets the directory of the final model.
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.Cache.OutputDir = dir
	}
}

// WithLogLevel sets the log level name.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// Default returns a Config matching a local PubMed Solr core.
func Default() *Config {
	params := embed.DefaultParams()
	return &Config{
		Index: IndexConfig{
			Endpoint:   DefaultEndpoint,
			Query:      DefaultQuery,
			Fields:     []string{DefaultIDField, DefaultTextField},
			Timeout:    Duration(solr.DefaultTimeout),
			MaxTrials:  index.UnboundedTrials,
			RetryDelay: Duration(index.DefaultRetryDelay),
			Burst:      1,
		},
		Stream: StreamConfig{
			Interval: stream.DefaultInterval,
			MaxConn:  pool.DefaultMaxConn,
			Backoff:  Duration(stream.DefaultBackoff),
		},
		Analysis: AnalysisConfig{
			Field:     DefaultTextField,
			BatchSize: analysis.DefaultBatchSize,
			Lowercase: true,
		},
		Model: ModelConfig{
			Dim:      params.Dim,
			Window:   params.Window,
			MinCount: params.MinCount,
			Seed:     params.Seed,
		},
		Cache: CacheConfig{
			Dir:       DefaultCacheDir,
			OutputDir: DefaultOutputDir,
		},
		LogLevel: DefaultLogLevel,
	}
}

// New creates a Config with the default values and applies opts.
func New(opts ...Option) *Config {
	cfg := Default()
	cfg.Apply(opts...)
	return cfg
}

// Apply applies opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Normalize puts the configuration in canonical form: trimmed endpoint,
// default query, resolved job counts and a field projection that always
// includes the text field.
func (c *Config) Normalize() {
	c.Index.Endpoint = strings.TrimRight(strings.TrimSpace(c.Index.Endpoint), "/")
	c.Index.Query = strings.TrimSpace(c.Index.Query)
	if c.Index.Query == "" {
		c.Index.Query = DefaultQuery
	}
	if c.Index.Burst < 1 {
		c.Index.Burst = 1
	}

	fields := c.Index.Fields[:0:0]
	for _, f := range c.Index.Fields {
		f = strings.TrimSpace(f)
		if f != "" && !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	c.Analysis.Field = strings.TrimSpace(c.Analysis.Field)
	if len(fields) > 0 && c.Analysis.Field != "" && !slices.Contains(fields, c.Analysis.Field) {
		fields = append(fields, c.Analysis.Field)
	}
	c.Index.Fields = fields

	if c.Stream.Jobs <= 0 {
		c.Stream.Jobs = runtime.NumCPU()
	}
	if c.Analysis.Jobs <= 0 {
		c.Analysis.Jobs = runtime.NumCPU()
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	u, err := url.Parse(c.Index.Endpoint)
	if c.Index.Endpoint == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: index endpoint %q must be an http(s) URL", ErrInvalidConfig, c.Index.Endpoint)
	}
	if c.ModelName() == modelExt {
		return fmt.Errorf("%w: index endpoint %q has no path to name the model", ErrInvalidConfig, c.Index.Endpoint)
	}
	if c.Index.Timeout < 0 || c.Index.RetryDelay < 0 || c.Stream.Backoff < 0 {
		return fmt.Errorf("%w: durations cannot be negative", ErrInvalidConfig)
	}
	if c.Index.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit cannot be negative", ErrInvalidConfig)
	}
	if c.Stream.Interval < 1 {
		return fmt.Errorf("%w: stream interval must be at least 1", ErrInvalidConfig)
	}
	if c.Stream.MaxConn < 1 {
		return fmt.Errorf("%w: max connections must be at least 1", ErrInvalidConfig)
	}
	if c.Analysis.Field == "" {
		return fmt.Errorf("%w: analysis field is required", ErrInvalidConfig)
	}
	if c.Analysis.BatchSize < 1 {
		return fmt.Errorf("%w: analysis batch size must be at least 1", ErrInvalidConfig)
	}
	if err := c.ModelParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return fmt.Errorf("%w: cache directory is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Cache.OutputDir) == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// CorpusKey returns the checkpoint key of the configured corpus.
func (c *Config) CorpusKey() string {
	return core.CorpusKey(c.Index.Endpoint, c.Index.Query)
}

// ModelName returns the model file name, derived from the last path element
// of the endpoint.
func (c *Config) ModelName() string {
	endpoint := strings.TrimRight(c.Index.Endpoint, "/")
	name := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		name = strings.TrimRight(u.Path, "/")
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name + modelExt
}

// ModelPath returns the path of the final model.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Cache.OutputDir, c.ModelName())
}

// CheckpointModelPath returns the path of the intermediate model saved
// alongside a checkpoint, e.g. "<cache>/pubmed.ckpt.mdl".
func (c *Config) CheckpointModelPath() string {
	name := strings.TrimSuffix(c.ModelName(), modelExt)
	return filepath.Join(c.Cache.Dir, name+checkpointTag+modelExt)
}

// StatePath returns the directory of the checkpoint store.
func (c *Config) StatePath() string {
	return filepath.Join(c.Cache.Dir, stateDir)
}

// ModelParams returns the word-vector hyperparameters.
func (c *Config) ModelParams() embed.Params {
	return embed.Params{
		Dim:      c.Model.Dim,
		Window:   c.Model.Window,
		MinCount: c.Model.MinCount,
		Seed:     c.Model.Seed,
	}
}

// StreamConfig returns the stream configuration starting at offset.
func (c *Config) StreamConfig(offset int) stream.Config {
	return stream.Config{
		Query:     c.Index.Query,
		Fields:    slices.Clone(c.Index.Fields),
		Offset:    offset,
		Interval:  c.Stream.Interval,
		Jobs:      c.Stream.Jobs,
		MaxConn:   c.Stream.MaxConn,
		MaxTrials: c.Index.MaxTrials,
		Backoff:   c.Stream.Backoff.Std(),
	}
}

// FetcherOptions returns the retry policy of the index fetcher.
func (c *Config) FetcherOptions() []index.FetcherOption {
	return []index.FetcherOption{
		index.WithTrials(c.Index.MaxTrials),
		index.WithRetryDelay(c.Index.RetryDelay.Std()),
		index.WithRateLimit(c.Index.RateLimit, c.Index.Burst),
	}
}

// TokenizerOptions returns the options of the sentence tokenizer.
func (c *Config) TokenizerOptions() []analysis.Option {
	return []analysis.Option{
		analysis.WithBatchSize(c.Analysis.BatchSize),
		analysis.WithJobs(c.Analysis.Jobs),
		analysis.WithLowercase(c.Analysis.Lowercase),
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w %q: must be one of debug, info, warn, error", ErrInvalidLogLevel, name)
	}
}
