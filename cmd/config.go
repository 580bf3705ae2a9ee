package cmd

import (
	"strings"

	"dqc/internal/database"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// activeProfile names the profile marked active in the config file.
const activeProfile = "@active"

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"`
}

func loadDBConfigs() ([]DBConfig, error) {
	var configs []DBConfig
	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, errors.Wrap(err, "failed to parse databases config")
	}
	return configs, nil
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	configs, err := loadDBConfigs()
	if err != nil {
		return nil, err
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, errors.New("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, errors.New("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// lookupDBConfig finds a profile by name, case-insensitively. A nil result
// means arg is not a profile name and should be used as a DSN.
func lookupDBConfig(arg string) (*DBConfig, error) {
	if arg == activeProfile {
		return GetActiveDBConfig()
	}

	configs, err := loadDBConfigs()
	if err != nil {
		return nil, err
	}
	for i := range configs {
		if configs[i].Name != "" && strings.EqualFold(configs[i].Name, arg) {
			return &configs[i], nil
		}
	}
	return nil, nil
}

// connectionOptions resolves the DSN argument. An explicit flag beats the
// profile, which beats the config file and environment.
func connectionOptions(cmd *cobra.Command, arg string) (database.Options, error) {
	opts := database.Options{
		DSN:    arg,
		Driver: viper.GetString("database.driver"),
		Schema: viper.GetString("database.schema"),

		QueryTimeout: viper.GetDuration("settings.query_timeout"),
	}

	profile, err := lookupDBConfig(arg)
	if err != nil {
		return opts, err
	}
	if profile != nil {
		if profile.DSN == "" {
			return opts, errors.Errorf("profile %q has no dsn", profile.Name)
		}
		log.Debugf("using profile %s", profile.Name)
		opts.DSN = profile.DSN
		if profile.Driver != "" && !flagChanged(cmd, "driver") {
			opts.Driver = profile.Driver
		}
		if profile.Schema != "" && !flagChanged(cmd, "schema") {
			opts.Schema = profile.Schema
		}
	}

	if strings.TrimSpace(opts.DSN) == "" {
		return opts, errors.New("a DSN or profile name is required")
	}
	return opts, nil
}

func connect(cmd *cobra.Command, arg string) (*database.Connection, error) {
	opts, err := connectionOptions(cmd, arg)
	if err != nil {
		return nil, err
	}
	return database.Open(cmd.Context(), opts, log)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
