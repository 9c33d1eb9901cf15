// Command rank-load benchmarks the ranking engine in process and verifies
// a running server's rank-feed responses.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/hotpath/internal/loadgen"
	"github.com/okian/hotpath/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "rank-load",
		Usage: "Load and correctness tooling for the feed ranking engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, logger.SetLevelString(cmd.String("log-level"))
		},
		Commands: []*cli.Command{
			benchCmd(out),
			verifyCmd(out),
		},
	}
}

var (
	postsFlag = &cli.IntFlag{
		Name:  "posts",
		Value: 1000,
		Usage: "Candidates per batch or request",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Random seed (default: current time)",
	}
	nanRateFlag = &cli.Float64Flag{
		Name:  "nan-rate",
		Usage: "Share of candidates scored NaN (bench only)",
	}
)

func seed(cmd *cli.Command) int64 {
	if cmd.IsSet("seed") {
		return cmd.Int64("seed")
	}
	return time.Now().UnixNano()
}

func benchCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Rank generated batches in process and report durations",
		Flags: []cli.Flag{
			postsFlag,
			&cli.IntFlag{
				Name:  "batches",
				Value: 5,
				Usage: "Number of batches",
			},
			seedFlag,
			nanRateFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			posts, batches := int(cmd.Int("posts")), int(cmd.Int("batches"))
			opts := loadgen.DefaultOptions()
			opts.NaNRate = cmd.Float64("nan-rate")

			logger.Get().Info(ctx, "starting bench",
				logger.Int("posts", posts),
				logger.Int("batches", batches),
			)
			res, err := loadgen.Bench(rand.New(rand.NewSource(seed(cmd))), posts, batches, opts)
			for i, d := range res.Durations {
				fmt.Fprintf(out, "batch %d/%d - posts=%d duration=%s\n", i+1, batches, posts, d)
			}
			if err != nil {
				return fmt.Errorf("bench: %w", err)
			}
			fmt.Fprintf(out, "avg duration %s across %d batches (%d posts each)\n", res.Average(), batches, posts)
			return nil
		},
	}
}

func verifyCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Post generated sets to a server and check every ordering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "http://localhost:8088",
				Usage: "Server base URL",
			},
			&cli.IntFlag{
				Name:  "requests",
				Value: 100,
				Usage: "Number of requests",
			},
			postsFlag,
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 4,
				Usage: "Concurrent requests",
			},
			&cli.Float64Flag{
				Name:  "rps",
				Usage: "Request rate cap; 0 is unlimited",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "Per-request timeout",
			},
			seedFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := loadgen.VerifyConfig{
				Requests:    int(cmd.Int("requests")),
				Posts:       int(cmd.Int("posts")),
				Concurrency: int(cmd.Int("concurrency")),
				RPS:         cmd.Float64("rps"),
				Seed:        seed(cmd),
				Options:     loadgen.DefaultOptions(),
			}
			client := loadgen.NewClient(cmd.String("url"), loadgen.WithHTTPClient(newHTTPClient(cmd.Duration("timeout"))))

			logger.Get().Info(ctx, "starting verify",
				logger.String("url", cmd.String("url")),
				logger.Int("requests", cfg.Requests),
				logger.Any("seed", cfg.Seed),
			)
			rep, err := loadgen.Verify(ctx, client, cfg)
			fmt.Fprintf(out, "succeeded=%d failed=%d errors=%d p50=%s p95=%s max=%s\n",
				rep.Succeeded, rep.Failed, rep.Errors,
				rep.Percentile(50), rep.Percentile(95), rep.Percentile(100))
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if rep.Failed > 0 || rep.Errors > 0 {
				return fmt.Errorf("verify: %d misordered, %d errored; first: %v", rep.Failed, rep.Errors, rep.FirstFailure)
			}
			return nil
		},
	}
}
