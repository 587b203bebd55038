package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Neumenon/jsonout/jsonout"
)

// app holds state shared by the subcommands.
type app struct {
	configFile string
	verbose    bool
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:           "jsonout",
		Short:         "Encode documents as canonical JSON",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("jsonout version {{.Version}}\n")
	root.PersistentFlags().StringVar(&a.configFile, "config", "",
		"Options file (json, yaml, toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Log encoder decisions to stderr")

	root.AddCommand(
		newEncodeCmd(a),
		newOptionsCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	settings, err := a.loadSettings()
	if err != nil {
		return err
	}
	if a.verbose {
		settings = append(settings, jsonout.Setting{Key: jsonout.OptLogger, Value: a.logger})
	}
	if len(settings) == 0 {
		return nil
	}
	if err := jsonout.ApplyBulk(settings...); err != nil {
		return fmt.Errorf("apply options: %w", err)
	}
	return nil
}

// loadSettings reads option values from the config file and JSONOUT_*
// environment variables. Keys are the registry's option names.
func (a *app) loadSettings() ([]jsonout.Setting, error) {
	v := viper.New()
	v.SetEnvPrefix("JSONOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for _, key := range jsonout.Default().Keys() {
		if key == jsonout.OptLogger {
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	keys := v.AllKeys()
	sort.Strings(keys)

	var settings []jsonout.Setting
	for _, key := range keys {
		if _, ok := jsonout.Resolve(key); !ok {
			a.logger.Warn("unknown option ignored", "key", key)
			continue
		}
		if !v.IsSet(key) {
			continue
		}
		settings = append(settings, jsonout.Setting{Key: key, Value: v.Get(key)})
	}
	return settings, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "jsonout %s\n", version)
			return err
		},
	}
}
