// Copyright 2025 Vectorforge
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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/semaphore"

	"github.com/vectorforge/batchpipe"
	"github.com/vectorforge/batchpipe/ai"
	aiopenai "github.com/vectorforge/batchpipe/ai/openai"
	"github.com/vectorforge/batchpipe/driver"
	"github.com/vectorforge/batchpipe/pipeline"
	"github.com/vectorforge/batchpipe/remote/openai"
	"github.com/vectorforge/batchpipe/retry"
)

func main() {
	app := &cli.App{
		Name:  "batchpipe",
		Usage: "Bulk embedding pipeline over an asynchronous batch API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Batch-embed all pending fragments, resuming incomplete jobs first",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Batch API base URL",
						Value: "https://api.openai.com",
					},
					&cli.StringFlag{
						Name:     "api-key",
						Usage:    "Batch API key",
						EnvVars:  []string{"OPENAI_API_KEY"},
						Required: true,
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Embedding model requested for every fragment",
						Value: "text-embedding-3-small",
					},
					&cli.IntFlag{
						Name:  "window-size",
						Usage: "Number of fragments claimed per window",
						Value: 500,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of embedding requests per input file",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "dimensions",
						Usage: "Embedding width override (0 keeps the model default)",
						Value: 0,
					},
					&cli.DurationFlag{
						Name:  "file-poll-interval",
						Usage: "Wait between input file readiness polls",
						Value: 5 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "job-poll-interval",
						Usage: "Wait between job completion polls",
						Value: 1 * time.Minute,
					},
					&cli.Int64Flag{
						Name:  "max-uploads",
						Usage: "Maximum concurrent file uploads (0 disables the bound)",
						Value: 0,
					},
				},
			},
			{
				Name:   "retry",
				Usage:  "Resubmit failed batch jobs, combined into groups",
				Action: retryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Batch API base URL",
						Value: "https://api.openai.com",
					},
					&cli.StringFlag{
						Name:     "api-key",
						Usage:    "Batch API key",
						EnvVars:  []string{"OPENAI_API_KEY"},
						Required: true,
					},
					&cli.StringFlag{
						Name:  "job",
						Usage: "Retry a single failed job in place instead of all failed jobs",
					},
					&cli.IntFlag{
						Name:  "group-size",
						Usage: "Number of failed jobs combined into one retry job",
						Value: 4,
					},
					&cli.Int64Flag{
						Name:  "concurrency",
						Usage: "Number of retry groups processed at once",
						Value: 2,
					},
					&cli.StringFlag{
						Name:  "retry-model",
						Usage: "Embedding model substituted into resubmitted requests",
						Value: "text-embedding-3-small",
					},
					&cli.DurationFlag{
						Name:  "file-poll-interval",
						Usage: "Wait between input file readiness polls",
						Value: 5 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "job-poll-interval",
						Usage: "Wait between job completion polls",
						Value: 1 * time.Minute,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find fragments semantically similar to a query",
				Action:    searchCommand,
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "https://api.openai.com/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (must match the batch-embedded model)",
						Value: "text-embedding-3-small",
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Embedding service API key",
						EnvVars: []string{"OPENAI_API_KEY"},
						Value:   "none",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 10,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := batchpipe.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	client, err := openai.NewClient(openai.NewConfig(
		openai.WithBaseURL(c.String("base-url")),
		openai.WithAPIKey(c.String("api-key")),
	))
	if err != nil {
		return fmt.Errorf("failed to create batch API client: %w", err)
	}

	pipeConfig := pipeline.Config{
		FilePollInterval: c.Duration("file-poll-interval"),
		JobPollInterval:  c.Duration("job-poll-interval"),
	}
	if n := c.Int64("max-uploads"); n > 0 {
		pipeConfig.SubmitSemaphore = semaphore.NewWeighted(n)
	}

	p, err := store.NewPipeline(client, pipeConfig)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer p.Shutdown()

	drv, err := driver.NewDriver(p, store.Fragments(), store.Jobs(), &driver.Config{
		WindowSize: c.Int("window-size"),
		BatchSize:  c.Int("batch-size"),
		Model:      c.String("model"),
		Dimensions: c.Int("dimensions"),
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Batch API: %s\n", c.String("base-url"))
	fmt.Fprintf(os.Stderr, "Model: %s\n", c.String("model"))
	fmt.Fprintln(os.Stderr)

	if err := drv.Run(ctx); err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	return nil
}

func retryCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := batchpipe.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	client, err := openai.NewClient(openai.NewConfig(
		openai.WithBaseURL(c.String("base-url")),
		openai.WithAPIKey(c.String("api-key")),
	))
	if err != nil {
		return fmt.Errorf("failed to create batch API client: %w", err)
	}

	coord, err := store.NewRetryCoordinator(client, &retry.Config{
		GroupSize:        c.Int("group-size"),
		Concurrency:      c.Int64("concurrency"),
		RetryModel:       c.String("retry-model"),
		FilePollInterval: c.Duration("file-poll-interval"),
		JobPollInterval:  c.Duration("job-poll-interval"),
	})
	if err != nil {
		return fmt.Errorf("failed to create retry coordinator: %w", err)
	}

	if jobID := c.String("job"); jobID != "" {
		if err := coord.RetryJob(ctx, jobID); err != nil {
			return fmt.Errorf("retry of job %s failed: %w", jobID, err)
		}
		fmt.Fprintf(os.Stderr, "Job %s resubmitted\n", jobID)
		return nil
	}

	created, err := coord.RetryAll(ctx)
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Created %d combined retry job(s); rerun the pipeline to ingest their results\n", created)

	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	store, err := batchpipe.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid embedding configuration: %w", err)
	}

	embedder, err := aiopenai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	searcher, err := store.NewSearcher(embedder)
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.FindSimilar(ctx, query, c.Int("max-hits"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%d. [%.3f] owner=%d fragment=%d\n   %s\n",
			i+1, result.Score, result.Fragment.Ref.OwnerID, result.Fragment.Ref.FragmentID, result.Fragment.Text)
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
