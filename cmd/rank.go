package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/filtering"
	"github.com/spigell/listing-advisor/internal/inventory"
	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/logger"
	"github.com/spigell/listing-advisor/internal/report"
)

var rankCmd = &cobra.Command{
	Use:   "rank <listings.json>",
	Short: "Rank listings from a file for the buyer without searching",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rank(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("profile", "p", "", "yaml file with the buyer profile. Default is the profile section of the config.")
	rankCmd.Flags().StringP("output", "o", "", "write the full report as json into a temp file with this pattern")
}

func rank(cmd *cobra.Command, path string) {
	ctx := context.Background()

	log, config, t := setup()

	profile, err := loadProfile(cmd.Flag("profile").Value.String(), config)
	if err != nil {
		log.Fatal("loading buyer profile", zap.Error(err))
	}
	log = logger.WithBuyer(log, profile.ID, profile.Name)

	items, err := inventory.LoadFile(path)
	if err != nil {
		log.Fatal("loading listings", zap.Error(err))
	}

	filtered, err := filtering.Run(ctx,
		&filtering.Config{ExcludeFile: config.ExcludeFile},
		filtering.Deps{Logger: log, Profile: profile, Tables: t},
		prepareFilters(config),
		listing.FromSlice(items),
	)
	if err != nil {
		log.Fatal("filtering failed", zap.Error(err))
	}

	r := report.New(t, config.Market, config.Workers, log.Named("report")).BuildListings(ctx, profile, filtered.Values())

	printSummaries(r)
	printMarketActions(r)

	if pattern := cmd.Flag("output").Value.String(); pattern != "" {
		filename, err := listing.DumpToTmpFile(pattern, r)
		if err != nil {
			log.Fatal("dump report to file", zap.Error(err))
		}
		log.Info("dumping report to file", zap.String("filename", filename))
	}
}
