package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// app carries the settings and logger shared by the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: slog.Default()}
	root := &cobra.Command{
		Use:   "kpbench",
		Short: "kpbench: keyphrase extraction benchmark",
		Long: `kpbench runs keyphrase extraction methods over benchmark corpora and
scores them against reference keyphrases.

A run chains a document builder, a candidate extractor, an optional
clusterer, a ranker and a selector. Runs are described in a YAML run file
or picked from the built-in method presets.

Settings can come from flags, KPBENCH_* environment variables or a
settings file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "settings file (default is ./kpbench.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(a), newMethodsCmd(a), newResultsCmd(a), newStoplistCmd(a))
	return root
}

// init reads the settings file and environment, binds the flags of cmd and
// sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("KPBENCH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("kpbench")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return internalerr.Configf("config", "read settings: %v", err)
		}
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return internalerr.Configf("log-level", "%v", err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("settings file loaded", "path", used)
	}
	return nil
}
