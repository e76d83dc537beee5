package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/Clark-Hu/cine-map/internal/app"
	"github.com/Clark-Hu/cine-map/internal/config"
	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/integration"
)

var errMissingID = errors.New("missing id argument")

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			st.Close()
			fmt.Fprintln(os.Stdout, "migrations up to date")
			return nil
		},
	}
}

func integrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "integrate",
		Usage:     "Import a catalog movie and enrich it synchronously",
		ArgsUsage: "<tmdbId>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "re-import the movie even if it already exists",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tmdbID, err := parseID(cmd.Args().First())
			if err != nil {
				return err
			}
			return withApp(ctx, cmd, func(a *app.App) error {
				return runIntegrate(ctx, a, tmdbID, cmd.Bool("replace"), os.Stdout)
			})
		},
	}
}

func ratingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ratings",
		Usage:     "Scrape the ratings of a stored movie again",
		ArgsUsage: "<movieId>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			movieID, err := parseID(cmd.Args().First())
			if err != nil {
				return err
			}
			return withApp(ctx, cmd, func(a *app.App) error {
				movie, err := a.Repo.Movies.GetByID(ctx, movieID)
				if err != nil {
					return fmt.Errorf("load movie %d: %w", movieID, err)
				}
				rating, err := a.Pipeline.IngestRatings(ctx, movie.ID, movie.Title, movie.ReleaseDate)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "movie %d: critic=%s spectator=%s\n", movie.ID, formatScore(rating.Critic), formatScore(rating.Spectator))
				return nil
			})
		},
	}
}

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect the enrichment queue",
		Commands: []*cli.Command{
			{
				Name:  "retry-failed",
				Usage: "Reschedule every failed job",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(a *app.App) error {
						n, err := a.Repo.Jobs.RetryFailed(ctx)
						if err != nil {
							return err
						}
						fmt.Fprintf(os.Stdout, "%d jobs rescheduled\n", n)
						return nil
					})
				},
			},
			{
				Name:  "stats",
				Usage: "Count jobs by status",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withApp(ctx, cmd, func(a *app.App) error {
						counts, err := a.Repo.Jobs.CountByStatus(ctx)
						if err != nil {
							return err
						}
						statuses := make([]domain.JobStatus, 0, len(counts))
						for status := range counts {
							statuses = append(statuses, status)
						}
						sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
						for _, status := range statuses {
							fmt.Fprintf(os.Stdout, "%-8s %d\n", status, counts[status])
						}
						return nil
					})
				},
			},
		},
	}
}

// runIntegrate imports tmdbID with a queue-less pipeline, then ingests credits
// and ratings inline.
func runIntegrate(ctx context.Context, a *app.App, tmdbID int64, replace bool, out io.Writer) error {
	inline := integration.New(integration.Deps{
		Catalog: a.Catalog,
		Scraper: a.Scraper,
		Movies:  a.Repo.Movies,
		Persons: a.Repo.Persons,
		Credits: a.Repo.Credits,
		Ratings: a.Repo.Ratings,
		Logger:  a.Logger,
	})

	res, err := inline.HandleMovie(ctx, tmdbID, replace)
	if err != nil {
		return err
	}
	if res.Outcome == integration.OutcomeNotFound {
		return fmt.Errorf("tmdb movie %d not found", tmdbID)
	}
	fmt.Fprintf(out, "movie %d: %s\n", res.MovieID, res.Outcome)

	report, err := inline.IngestCredits(ctx, tmdbID, res.MovieID)
	if err != nil {
		return fmt.Errorf("ingest credits: %w", err)
	}
	fmt.Fprintf(out, "credits: %d persons, %d cast, %d crew\n", report.Persons, report.Cast, report.Crew)

	movie, err := a.Repo.Movies.GetByID(ctx, res.MovieID)
	if err != nil {
		return err
	}
	rating, err := inline.IngestRatings(ctx, movie.ID, movie.Title, movie.ReleaseDate)
	if err != nil {
		return fmt.Errorf("ingest ratings: %w", err)
	}
	fmt.Fprintf(out, "ratings: critic=%s spectator=%s\n", formatScore(rating.Critic), formatScore(rating.Spectator))
	return nil
}

func setup(cmd *cli.Command) (config.Config, *logrus.Logger, error) {
	if err := godotenv.Load(cmd.Root().String("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, app.NewLogger(cfg), nil
}

func withApp(ctx context.Context, cmd *cli.Command, fn func(a *app.App) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	st, err := app.OpenStore(ctx, cfg, logger, cfg.DBAutoMigrate)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.Build(cfg, st, logger)
	if err != nil {
		return err
	}
	return fn(a)
}

func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, errMissingID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// formatScore renders a x10 score as a one-decimal value.
func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d.%d", *score/10, *score%10)
}
