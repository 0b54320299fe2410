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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/normqa"
	"github.com/poiesic/normqa/ai"
	"github.com/poiesic/normqa/loader"
	"github.com/poiesic/normqa/query"
)

func main() {
	// Optional .env file for API hosts and tokens; flags still win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:  "normqa",
		Usage: "Question answering over technical standards documents",
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
				Name:   "load",
				Usage:  "Load an extracted datastore dump and embed its sections",
				Action: loadCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Usage:    "Path to the datastore dump directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of sections to embed in each batch",
						Value: loader.DefaultEmbedBatchSize,
					},
				}, commonFlags()...),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question against the loaded documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Initial vector search window",
						Value: query.DefaultTopK,
					},
					&cli.BoolFlag{
						Name:  "steps",
						Usage: "Print the pipeline step log after the answer",
					},
				}, commonFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags are shared by every command that opens the database and talks
// to the AI services. Values fall back to the environment (.env included).
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
			EnvVars:  []string{"NORMQA_DB"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{"NORMQA_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"NORMQA_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "chat-host",
			Usage:   "Completion service host URL",
			EnvVars: []string{"NORMQA_CHAT_HOST"},
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Completion model name",
			EnvVars: []string{"NORMQA_CHAT_MODEL"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API token for both services (\"none\" for local services)",
			EnvVars: []string{"NORMQA_TOKEN"},
		},
	}
}

// aiConfigFromFlags builds an AI config from the defaults overlaid with any
// flags the user actually set.
func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	var opts []ai.ConfigOption
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithEmbeddingHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithEmbeddingModel(model))
	}
	if host := c.String("chat-host"); host != "" {
		opts = append(opts, ai.WithChatHost(host))
	}
	if model := c.String("chat-model"); model != "" {
		opts = append(opts, ai.WithChatModel(model))
	}
	if token := c.String("token"); token != "" {
		opts = append(opts, ai.WithToken(token))
	}

	config := ai.NewConfig(opts...)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return config, nil
}

func loadCommand(c *cli.Context) error {
	ctx := context.Background()

	dataDir := c.String("data")
	if info, err := os.Stat(dataDir); err != nil {
		return fmt.Errorf("data directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dataDir)
	}

	config, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	db, err := normqa.NewDatabase(c.String("db"), normqa.WithAIConfig(config))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	l, err := db.NewLoader(loader.WithEmbedBatchSize(c.Int("batch-size")))
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}
	defer l.Release()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Dump directory: %s\n", dataDir)
	fmt.Fprintln(os.Stderr)

	stats, err := l.LoadDir(ctx, dataDir)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Loaded %d documents, %d sections, %d objects\n",
		stats.Documents, stats.Sections, stats.Objects)
	fmt.Fprintf(os.Stderr, "Loaded %d reference lists, %d precedence rules, %d symbols\n",
		stats.References, stats.Precedence, stats.Symbols)
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	config, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	db, err := normqa.NewDatabase(c.String("db"), normqa.WithAIConfig(config))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	engine, err := db.NewEngine(ctx, query.WithTopK(c.Int("top-k")))
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}
	defer engine.Close()

	result, err := engine.Query(ctx, question, nil)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(result.Answer)

	if len(result.MissingDocuments) > 0 {
		fmt.Printf("\nDocuments referenced but not loaded: %s\n",
			strings.Join(result.MissingDocuments, ", "))
	}
	if len(result.References) > 0 {
		fmt.Printf("\nSources:\n")
		for _, ref := range result.References {
			fmt.Printf("  %s %q, page %d\n", ref.ID, ref.Title, ref.Page)
		}
	}

	if c.Bool("steps") {
		fmt.Fprintln(os.Stderr)
		for _, step := range result.Steps {
			fmt.Fprintf(os.Stderr, "%d. %s: %s\n", step.Step, step.Description, step.Action)
		}
		fmt.Fprintf(os.Stderr, "total: %dms\n", result.Timings["total"])
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
