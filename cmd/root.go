package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/listing-advisor/internal/inventory"
	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/market"
	"github.com/spigell/listing-advisor/internal/storage/postgres"
	"github.com/spigell/listing-advisor/internal/widening"
)

const (
	app = "listing-advisor"
)

const (
	DriverAPI      = "api"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Profile     *listing.BuyerProfile `mapstructure:"profile"`
	Inventory   inventory.Config      `mapstructure:"inventory"`
	Storage     StorageConfig         `mapstructure:"storage"`
	Search      widening.Config       `mapstructure:"search"`
	Market      market.Config         `mapstructure:"market"`
	TablesFile  string                `mapstructure:"tables-file"`
	ExcludeFile string                `mapstructure:"exclude-file"`
	Workers     int                   `mapstructure:"workers"`
	Filters     FiltersConfig         `mapstructure:"filters"`
}

type FiltersConfig struct {
	// Dealbreakers drops listings with a dealbreaker instead of only scoring them down.
	Dealbreakers bool `mapstructure:"dealbreakers"`
}

type StorageConfig struct {
	// Driver selects the search collaborator: api (default), sqlite or postgres.
	Driver   string          `mapstructure:"driver"`
	SQLite   string          `mapstructure:"sqlite"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "listing-advisor ranks listings for a buyer and suggests when to make an offer",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("inventory.token-file", "LISTING_ADVISOR_TOKEN_FILE"); err != nil {
		log.Fatalf("binding LISTING_ADVISOR_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("storage.postgres.dsn-file", "LISTING_ADVISOR_PG_DSN_FILE"); err != nil {
		log.Fatalf("binding LISTING_ADVISOR_PG_DSN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is listing-advisor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// rank and import can run from flags alone.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}
