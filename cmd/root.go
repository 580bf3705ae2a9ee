package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dqc/internal/database"
	"dqc/internal/logger"
	"dqc/internal/schema"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	driverName string
	schemaName string
	outputFmt  string
	verbose    bool
	noProgress bool
	sampleSize int

	log       = logger.Discard()
	configErr error
)

var RootCmd = &cobra.Command{
	Use:   "dqc",
	Short: "A read-only database data quality checker",
	Long: `
      _
   __| | __ _  ___
  / _  |/ _  |/ __|
 | (_| | (_| | (__
  \__,_|\__, |\___|
           |_|

DQC - finds NaN values, orphan references, broken text encoding,
tables without a primary key and oversized tables. Never writes.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.NewLogger(viper.GetBool("verbose"))
		if configErr != nil {
			return configErr
		}
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debugf("using config file %s", used)
		}

		switch viper.GetString("output") {
		case formatText, formatJSON, formatYAML:
			return nil
		default:
			return errors.Errorf("unknown output format %q (want text, json or yaml)", viper.GetString("output"))
		}
	},
}

// Execute runs the root command and exits with a code describing the
// outcome: 0 when the scan ran (findings or not), 2 for an unknown table or
// column, 3 when the database could not be reached, 1 otherwise.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case schema.IsNotFound(err):
		return 2
	case database.IsConnectionError(err):
		return 3
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./dqc.yaml)")
	flags.StringVar(&driverName, "driver", "", "database driver: postgres, mysql, sqlserver, oracle (default: detect from DSN)")
	flags.StringVar(&schemaName, "schema", "", "schema to inspect (default: the session's current schema)")
	flags.StringVarP(&outputFmt, "output", "o", formatText, "output format: text, json or yaml")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every generated SQL statement")
	flags.BoolVar(&noProgress, "no-progress", false, "do not draw the progress bar")
	flags.IntVar(&sampleSize, "sample-size", 0, "rows sampled per finding (overrides config)")

	viper.BindPFlag("database.driver", flags.Lookup("driver"))
	viper.BindPFlag("database.schema", flags.Lookup("schema"))
	viper.BindPFlag("output", flags.Lookup("output"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("no_progress", flags.Lookup("no-progress"))
	viper.BindPFlag("settings.sample_size", flags.Lookup("sample-size"))

	viper.SetDefault("output", formatText)
	viper.SetDefault("settings.threshold", 500000)
	viper.SetDefault("settings.sample_size", 5)
	viper.SetDefault("settings.context_columns", 3)
	viper.SetDefault("settings.skip_tables", []string{})
	viper.SetDefault("settings.query_timeout", "0s")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then the working directory.
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("dqc")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DQC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = errors.Wrap(err, "failed to read config")
		}
	}
}
