/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cjnewshub/apiserver/config"
	"github.com/cjnewshub/apiserver/internal/db"
	"github.com/cjnewshub/apiserver/internal/legacy"
	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/internal/storage"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import a localStorage export from the browser edition",
	Long: `Imports the cj_* keys of a browser localStorage export: users, articles,
advertisements, e-paper pages, clippings and site settings. Cleartext
passwords are hashed; records that already exist are skipped. Usage:

	cjnews import export.json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(os.Stderr, cfg.LogLevel)
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		snap, err := legacy.Parse(f)
		if err != nil {
			return err
		}

		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		objects, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open object storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
		}

		importer := legacy.NewImporter(legacy.Targets{
			Users:    store.NewUserRepository(conn),
			Articles: store.NewArticleRepository(conn),
			Ads:      store.NewAdvertisementRepository(conn),
			Pages:    store.NewEPaperRepository(conn),
			Clippings: services.NewClippingService(
				store.NewClippingRepository(conn),
				storage.NewGateway(objects, services.ClippingObjectPrefix,
					storage.WithCacheControl(storage.ImmutableCacheControl)),
				log,
			),
			Settings: services.NewSettingsService(store.NewKVRepository(conn), log),
		}, log)

		report, err := importer.Import(ctx, snap)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
