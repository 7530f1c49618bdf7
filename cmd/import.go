package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/inventory"
)

var importCmd = &cobra.Command{
	Use:   "import <listings.json>",
	Short: "Load listings from a file into the sqlite or postgres store",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importListings(args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importListings(path string) {
	ctx := context.Background()

	log, config, _ := setup()

	items, err := inventory.LoadFile(path)
	if err != nil {
		log.Fatal("loading listings", zap.Error(err))
	}

	s, closeStore, err := openStore(ctx, config)
	if err != nil {
		log.Fatal("opening store", zap.Error(err), zap.String("hint", "set storage.driver to sqlite or postgres"))
	}
	defer closeStore()

	if err := s.EnsureSchema(ctx); err != nil {
		log.Fatal("preparing schema", zap.Error(err))
	}

	n, err := s.UpsertMany(ctx, items)
	if err != nil {
		log.Fatal("storing listings", zap.Error(err))
	}

	log.Info("listings imported", zap.String("driver", config.Storage.Driver), zap.Int("count", n))
}
