package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/internal/logger"
	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

const (
	app = "simplepublish"
)

// Config is the optional CLI config file. Values left empty fall back to
// the environment read by config.WithEnv.
type Config struct {
	EnvPrefix   string `mapstructure:"env-prefix"`
	Provider    string `mapstructure:"provider"`
	Credential  string `mapstructure:"credential"`
	PinningURL  string `mapstructure:"pinning-api-url"`
	GatewayURL  string `mapstructure:"gateway-url"`
	StorageDir  string `mapstructure:"storage-dir"`
	DatabaseURL string `mapstructure:"database-url"`
	DBSchema    string `mapstructure:"db-schema"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "simplepublish publishes profiles and job postings to content-addressed storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is simplepublish.yaml in current directory, optional)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless named explicitly.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			cobra.CheckErr(fmt.Errorf("reading config: %w", err))
		}
	}
}

func getConfig() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}

// options turns the CLI config into publish configuration options applied
// after the environment
func (c *Config) options() []config.Option {
	opts := []config.Option{config.WithEnv(c.EnvPrefix)}

	switch c.Provider {
	case config.ProviderPinning:
		opts = append(opts, func(sc *config.ServerConfig) error {
			credential := c.Credential
			if credential == "" {
				credential = sc.Credential
			}
			return config.WithPinning(credential, c.PinningURL)(sc)
		})
	case config.ProviderCAS:
		opts = append(opts, config.WithCAS())
	}
	if c.GatewayURL != "" {
		opts = append(opts, config.WithGatewayURLs(c.GatewayURL))
	}
	if c.StorageDir != "" {
		opts = append(opts, config.WithFilesystemStorage(c.StorageDir))
	}
	if c.DatabaseURL != "" {
		opts = append(opts, config.WithPostgresDrafts(c.DatabaseURL, c.DBSchema))
	}
	return opts
}
