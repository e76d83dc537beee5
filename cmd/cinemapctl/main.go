// Package main provides cinemapctl, the admin CLI of the movie catalog.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "cinemapctl",
		Version: version,
		Usage:   "Administer the movie catalog database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "optional dotenv file loaded before reading the environment",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			integrateCommand(),
			ratingsCommand(),
			jobsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
