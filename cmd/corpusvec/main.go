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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/poiesic/corpusvec/config"
	"github.com/poiesic/corpusvec/embed"
	"github.com/poiesic/corpusvec/index/solr"
	"github.com/poiesic/corpusvec/storage/badger"
	"github.com/poiesic/corpusvec/training"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "corpusvec",
		Usage: "Resumable word-vector training over a Solr corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   config.DefaultLogLevel,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "train",
				Usage:  "Build the vocabulary and train word vectors, resuming an interrupted job",
				Action: trainCommand,
				Flags: append(jobFlags(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Retrain a corpus that has already been trained",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 1000,
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not report progress",
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show the checkpoint of a training job",
				Action: statusCommand,
				Flags:  jobFlags(),
			},
			{
				Name:   "reset",
				Usage:  "Delete the checkpoint and intermediate model of a training job",
				Action: resetCommand,
				Flags:  jobFlags(),
			},
			{
				Name:      "similar",
				Usage:     "List the words closest to each given word",
				ArgsUsage: "WORD...",
				Action:    similarCommand,
				Flags: append(jobFlags(),
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Path to a model file (defaults to the model of the configured job)",
					},
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Number of neighbours to list",
						Value:   10,
					},
				),
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as TOML",
				Action: configCommand,
				Flags:  jobFlags(),
			},
		},
	}
}

// jobFlags are the flags that override the configuration file.
func jobFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "endpoint", Aliases: []string{"e"}, Usage: "Solr core URL"},
		&cli.StringFlag{Name: "query", Usage: "Query selecting the corpus"},
		&cli.StringSliceFlag{Name: "fields", Usage: "Fields requested from the index"},
		&cli.StringFlag{Name: "text-field", Usage: "Field holding the text"},
		&cli.IntFlag{Name: "interval", Usage: "Documents per batch"},
		&cli.DurationFlag{Name: "timeout", Usage: "Timeout of a single request"},
		&cli.IntFlag{Name: "parse-batch", Usage: "Documents tokenized together"},
		&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "Parallel jobs (0 for one per CPU)"},
		&cli.IntFlag{Name: "max-conn", Usage: "Maximum concurrent requests"},
		&cli.IntFlag{Name: "max-trials", Usage: "Attempts per request and per batch (negative retries forever)"},
		&cli.DurationFlag{Name: "retry-delay", Usage: "Pause between attempts of one request"},
		&cli.DurationFlag{Name: "backoff", Usage: "Pause before a failed batch is retried"},
		&cli.Float64Flag{Name: "rate-limit", Usage: "Maximum requests per second (0 disables)"},
		&cli.IntFlag{Name: "burst", Usage: "Requests allowed above the rate limit at once"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Directory of the checkpoint store and intermediate model"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Directory of the final model"},
		&cli.IntFlag{Name: "dim", Usage: "Vector dimension"},
		&cli.IntFlag{Name: "window", Usage: "Context window on each side of a word"},
		&cli.IntFlag{Name: "min-count", Usage: "Minimum word frequency"},
		&cli.Uint64Flag{Name: "seed", Usage: "Seed of the index vectors"},
	}
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var opts []config.Option
	if c.IsSet("endpoint") {
		opts = append(opts, config.WithEndpoint(c.String("endpoint")))
	}
	if c.IsSet("query") {
		opts = append(opts, config.WithQuery(c.String("query")))
	}
	if c.IsSet("fields") {
		opts = append(opts, config.WithFields(c.StringSlice("fields")...))
	}
	if c.IsSet("text-field") {
		opts = append(opts, config.WithTextField(c.String("text-field")))
	}
	if c.IsSet("interval") {
		opts = append(opts, config.WithInterval(c.Int("interval")))
	}
	if c.IsSet("timeout") {
		opts = append(opts, config.WithTimeout(c.Duration("timeout")))
	}
	if c.IsSet("parse-batch") {
		opts = append(opts, config.WithParseBatch(c.Int("parse-batch")))
	}
	if c.IsSet("jobs") {
		opts = append(opts, config.WithJobs(c.Int("jobs")))
	}
	if c.IsSet("max-conn") {
		opts = append(opts, config.WithMaxConn(c.Int("max-conn")))
	}
	if c.IsSet("max-trials") {
		opts = append(opts, config.WithMaxTrials(c.Int("max-trials")))
	}
	if c.IsSet("retry-delay") {
		opts = append(opts, config.WithRetryDelay(c.Duration("retry-delay")))
	}
	if c.IsSet("backoff") {
		opts = append(opts, config.WithBackoff(c.Duration("backoff")))
	}
	if c.IsSet("rate-limit") || c.IsSet("burst") {
		rps, burst := cfg.Index.RateLimit, cfg.Index.Burst
		if c.IsSet("rate-limit") {
			rps = c.Float64("rate-limit")
		}
		if c.IsSet("burst") {
			burst = c.Int("burst")
		}
		opts = append(opts, config.WithRateLimit(rps, burst))
	}
	if c.IsSet("cache-dir") {
		opts = append(opts, config.WithCacheDir(c.String("cache-dir")))
	}
	if c.IsSet("output-dir") {
		opts = append(opts, config.WithOutputDir(c.String("output-dir")))
	}
	if c.IsSet("dim") {
		cfg.Model.Dim = c.Int("dim")
	}
	if c.IsSet("window") {
		cfg.Model.Window = c.Int("window")
	}
	if c.IsSet("min-count") {
		cfg.Model.MinCount = c.Int("min-count")
	}
	if c.IsSet("seed") {
		cfg.Model.Seed = c.Uint64("seed")
	}
	if c.IsSet("log-level") {
		opts = append(opts, config.WithLogLevel(c.String("log-level")))
	}
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A level from the configuration file applies unless the flag was given.
	if !c.IsSet("log-level") {
		if err := configureLogger(c.App.ErrWriter, cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openRepository(cfg *config.Config) (*badger.CheckpointRepository, error) {
	repo, err := badger.OpenCheckpointRepository(cfg.StatePath(), badger.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	return repo, nil
}

func trainCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	dialer, err := solr.NewDialer(cfg.Index.Endpoint,
		solr.WithTimeout(cfg.Index.Timeout.Std()),
		solr.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create solr dialer: %w", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	opts := []training.Option{
		training.WithLogger(slog.Default()),
		training.WithForce(c.Bool("force")),
	}
	if !c.Bool("quiet") {
		opts = append(opts, training.WithProgress(c.App.ErrWriter, c.Int("report-interval")))
	}
	driver, err := training.NewDriver(dialer, repo, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create training driver: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Endpoint: %s\n", cfg.Index.Endpoint)
	fmt.Fprintf(out, "Query: %s\n", cfg.Index.Query)
	fmt.Fprintf(out, "Cache: %s\n", cfg.Cache.Dir)
	fmt.Fprintln(out)

	res, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	switch {
	case res.Skipped:
		fmt.Fprintf(out, "Corpus already trained, model is %s (use --force to retrain)\n", res.ModelPath)
	case res.Completed:
		fmt.Fprintf(out, "Finished training word vectors, model saved in %s\n", res.ModelPath)
	case res.Interrupted:
		fmt.Fprintf(out, "Training interrupted during the %s pass at offset %d of %d, model cache saved in %s\n",
			res.Phase, res.Offset, res.Total, res.ModelPath)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	st, err := training.LoadStatus(c.Context, repo, cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Corpus\t%s %s\n", cfg.Index.Endpoint, cfg.Index.Query)
	fmt.Fprintf(w, "Key\t%s\n", st.Checkpoint.Key)
	fmt.Fprintf(w, "Phase\t%s\n", st.Phase)
	fmt.Fprintf(w, "Offset\t%d\n", st.Checkpoint.Offset)
	fmt.Fprintf(w, "Resumable\t%t\n", st.Resumable)
	if !st.Checkpoint.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated\t%s\n", st.Checkpoint.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Intermediate model\t%s%s\n", st.IntermediatePath, missing(st.IntermediateExists))
	fmt.Fprintf(w, "Model\t%s%s\n", st.ModelPath, missing(st.ModelExists))
	return w.Flush()
}

func missing(exists bool) string {
	if exists {
		return ""
	}
	return " (missing)"
}

func resetCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := training.Reset(c.Context, repo, cfg); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Checkpoint of %s cleared\n", cfg.Index.Endpoint)
	return nil
}

func similarCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one word is required")
	}
	path := c.String("model")
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		path = cfg.ModelPath()
	}

	model, err := embed.LoadModel(path)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	return printNeighbors(c.App.Writer, model, c.Args().Slice(), c.Int("top"))
}

func printNeighbors(out io.Writer, model *embed.Model, words []string, n int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, word := range words {
		neighbors, err := model.MostSimilar(word, n)
		if err != nil {
			fmt.Fprintf(w, "%s\t%v\n", word, err)
			continue
		}
		fmt.Fprintf(w, "%s\n", word)
		for _, nb := range neighbors {
			fmt.Fprintf(w, "\t%s\t%.4f\n", nb.Word, nb.Similarity)
		}
	}
	return w.Flush()
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return cfg.WriteTOML(c.App.Writer)
}

func setupLogger(c *cli.Context) error {
	return configureLogger(c.App.ErrWriter, c.String("log-level"))
}

func configureLogger(w io.Writer, name string) error {
	level, err := config.ParseLevel(name)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
