package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"variantcart/internal/config"
	"variantcart/internal/db"
	"variantcart/internal/importer"
	"variantcart/internal/logging"
	"variantcart/internal/repository/product"
)

func main() {
	app := &cli.App{
		Name:  "importer",
		Usage: "import a catalog CSV export, one row per variant",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "path to the catalog CSV", Required: true},
			&cli.BoolFlag{Name: "dry-run", Usage: "parse and report without writing"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("import failed")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("cmd", "importer")

	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	var repo importer.ProductWriter
	if !c.Bool("dry-run") {
		pool, err := db.Connect(ctx, cfg.DBConnString, logger)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()
		repo = product.NewPostgres(pool, logger)
	}

	start := time.Now()
	count, err := importer.NewCSVImporter(f, repo, logger, c.Bool("dry-run")).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
	return nil
}
