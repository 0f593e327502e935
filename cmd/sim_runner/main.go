package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces every environment override, e.g. QUESIM_SERVERS=3
// or QUESIM_SERVICE_RATE=2.5.
const envPrefix = "QUESIM"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a private viper instance so
// that every invocation (and every test) starts from a clean configuration.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var (
		cfgFile  string
		envFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "sim_runner",
		Short: "Discrete-event simulator for single-station queueing systems",
		Long: `sim_runner estimates the steady-state behavior of a queueing station
(M/M/c, M/M/c/K, finite-source and normal-service variants) by discrete-event
simulation, and compares it with the analytical solution where one exists.

Parameters come from flags, QUESIM_* environment variables (a .env file is
loaded first when present) and an optional YAML or JSON config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configureLogging(logLevel); err != nil {
				return err
			}
			return initConfig(v, cfgFile, envFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRunCmd(v),
		newTheoryCmd(v),
		newPlotCmd(v),
		newConfigCmd(v),
		newPromptCmd(v),
	)
	return rootCmd
}

func configureLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func initConfig(v *viper.Viper, cfgFile, envFile string) error {
	if envFile != "" {
		// A missing .env file is normal; a malformed one is not.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	setConfigDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		logrus.WithField("file", v.ConfigFileUsed()).Info("using config file")
	}
	return nil
}
