package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/filtering"
	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/logger"
	"github.com/spigell/listing-advisor/internal/report"
	"github.com/spigell/listing-advisor/internal/tables"
	"github.com/spigell/listing-advisor/internal/widening"
)

const (
	PromptTopPicks            = "Show top picks"
	PromptMarketActions       = "Show market actions"
	PromptListingDetails      = "Show listing details"
	PromptReportByCity        = "Report by city"
	PromptReportToFile        = "Dump report to file"
	PromptAppendToExcludeFile = "Append all listings to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Next step?",
	Items: []string{PromptTopPicks, PromptMarketActions, PromptListingDetails, PromptReportByCity, PromptReportToFile, PromptAppendToExcludeFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search listings for the buyer, rank them and suggest offer timing",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "print the report and exit without asking")
	runCmd.Flags().StringP("profile", "p", "", "yaml file with the buyer profile. Default is the profile section of the config.")
	runCmd.Flags().StringP("exclude-file", "e", "", "special file with listings to exclude. Default is unset.")

	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	log, config, t := setup()

	profile, err := loadProfile(cmd.Flag("profile").Value.String(), config)
	if err != nil {
		log.Fatal("loading buyer profile", zap.Error(err))
	}
	log = logger.WithBuyer(log, profile.ID, profile.Name)

	searcher, closeSearcher, err := newSearcher(ctx, config, log)
	if err != nil {
		log.Fatal("preparing listing search", zap.Error(err))
	}
	defer closeSearcher()

	svc, err := widening.New(searcher, config.Search, log.Named("widening"))
	if err != nil {
		log.Fatal("preparing widening", zap.Error(err))
	}

	log.Info("starting the search", zap.Strings("levels", config.Search.Levels))

	search := svc.Search(ctx, profile)
	log.Info("search finished",
		zap.String(logger.FieldLevel, search.Level),
		zap.Int("count", search.Total),
		zap.String("adjustments", widening.AdjustmentSummary(search)),
	)
	if search.Level == widening.LevelFailed {
		log.Fatal("searching listings", zap.String("error", search.Error))
	}

	filtered, err := filtering.Run(ctx,
		&filtering.Config{ExcludeFile: config.ExcludeFile},
		filtering.Deps{Logger: log, Profile: profile, Tables: t},
		prepareFilters(config),
		listing.FromSlice(search.Listings),
	)
	if err != nil {
		log.Fatal("filtering failed", zap.Error(err))
	}
	search.Listings = filtered.Values()
	search.Total = filtered.Len()

	if filtered.Len() == 0 {
		log.Info("exiting", zap.String("reason", "no listings left after filters"))
		return
	}

	r := report.New(t, config.Market, config.Workers, log.Named("report")).Build(ctx, profile, search)

	if cmd.Flag("auto-approve").Value.String() == "true" {
		printSummaries(r)
		printMarketActions(r)
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, log, config, filtered, &r); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			log.Fatal("exiting", zap.Error(err))
		}
	}
}

// setup builds the logger, the config and the lookup tables shared by all commands.
func setup() (*zap.Logger, *Config, *tables.Tables) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Info("starting the listing-advisor", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	t, err := tables.Load(config.TablesFile)
	if err != nil {
		l.Fatal("loading lookup tables", zap.Error(err))
	}
	l.Debug("lookup tables loaded", zap.Int("version", t.Version), zap.String("file", config.TablesFile))

	return l, config, t
}

func handleAction(action string, log *zap.Logger, config *Config, listings *listing.Listings, r *report.Report) error {
	switch action {
	case PromptTopPicks:
		printSummaries(*r)
		return nil
	case PromptMarketActions:
		printMarketActions(*r)
		return nil
	case PromptListingDetails:
		id, err := (&promptui.Prompt{Label: "Listing id"}).Run()
		if err != nil {
			return fmt.Errorf("reading listing id: %w", err)
		}
		return showListing(os.Stdout, log, listings, r, strings.TrimSpace(id))
	case PromptReportByCity:
		pretty, _ := json.MarshalIndent(listings.ReportByCity(), "", "  ")
		log.Info(string(pretty), zap.Int("listings count", listings.Len()))
		return nil
	case PromptReportToFile:
		filename, err := listing.DumpToTmpFile(app+"-report-*.json", r)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		log.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(log, config.ExcludeFile, listings)
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showListing(w io.Writer, log *zap.Logger, listings *listing.Listings, r *report.Report, id string) error {
	l := listings.FindByID(id)
	if l == nil {
		log.Warn("listing not found", zap.String(logger.FieldListing, id))
		return nil
	}

	ev, ok := r.Find(id)
	if !ok {
		log.Warn("listing was not evaluated", zap.String(logger.FieldListing, id))
		return nil
	}
	writeEvaluation(w, ev)
	return nil
}

func appendToExcludeFile(log *zap.Logger, path string, listings *listing.Listings) error {
	path = strings.TrimSpace(path)
	if path == "" {
		log.Warn("exclude file is not configured", zap.String("hint", "set exclude-file or pass --exclude-file"))
		return nil
	}

	excluded, err := listing.GetExcludedListingsFromFile(path)
	if err != nil {
		return fmt.Errorf("reading exclude file: %w", err)
	}
	excluded.Append(listings.ToExcluded("reviewed"))

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}
	log.Info("listings appended to exclude file", zap.String("path", path), zap.Int("count", listings.Len()))
	return nil
}

func printSummaries(r report.Report) {
	writeSummaries(os.Stdout, r)
}

func printMarketActions(r report.Report) {
	writeMarketActions(os.Stdout, r)
}
