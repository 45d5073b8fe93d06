package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"creditrisk/internal/fairness"
	"creditrisk/internal/platform/logger"
)

// app carries per-invocation state so tests can build fresh commands.
type app struct {
	cfgFile string
	v       *viper.Viper
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "creditrisk-audit",
		Short: "Fairness audit for the credit decision model",
		Long: `creditrisk-audit scores a labelled dataset with the decision model and
reports demographic parity and equalized odds per protected attribute.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./creditrisk-audit.yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	root.AddCommand(a.runCmd())
	return root
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	v := a.v
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("creditrisk-audit")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CREDITRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := fairness.DefaultThresholds()
	v.SetDefault("audit.pass_threshold", defaults.Pass)
	v.SetDefault("audit.review_threshold", defaults.Review)
	v.SetDefault("audit.label_column", fairness.DefaultLabelColumn)
	v.SetDefault("audit.workers", 4)
	v.SetDefault("policy.decline_threshold", 0.5)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	format := v.GetString("logging.format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", format)
	}
	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), v.GetString("logging.level"), format)
	slog.SetDefault(a.logger)
	return nil
}

// verdictError marks a completed audit whose verdict crossed --fail-on.
type verdictError struct {
	verdict fairness.Verdict
}

func (e *verdictError) Error() string {
	return "fairness audit verdict: " + string(e.verdict)
}

