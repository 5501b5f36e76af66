// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mediumroast/mrcli/internal/config"
	"github.com/mediumroast/mrcli/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// skipConfig marks commands that run without a validated configuration.
const skipConfig = "mrcli/skip-config"

var (
	cfgFile string
	verbose bool
)

// flagBindings maps command flags onto the configuration keys they override.
var flagBindings = map[string]string{
	"source":      "source.type",
	"target":      "sync.target",
	"concurrency": "sync.concurrency",
}

// NewRootCommand builds the mrcli command tree.
func NewRootCommand() *cobra.Command {
	return newRootCmd(NewProvider())
}

func newRootCmd(p provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mrcli",
		Short: "mrcli renders Mediumroast company intelligence into reports.",
		Long: `mrcli reads companies, interactions and studies from the Mediumroast API,
a GitHub repository, local JSON files or PostgreSQL, and renders them into
Markdown or Word reports. The sync command keeps a repository of Markdown
reports in step with the collections.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			if cmd.Annotations[skipConfig] == "true" {
				var lc config.LoggerConfig
				if err := v.UnmarshalKey("logger", &lc); err != nil {
					lc = fallbackLoggerConfig()
				}
				observability.InitializeLogger(lc)
				return nil
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			if verbose {
				observability.SetLevel(zapcore.DebugLevel)
			}
			observability.GetLogger().Debug("Starting mrcli",
				zap.String("version", Version),
				zap.String("source", cfg.Source().Type),
				zap.String("target", cfg.Sync().Target))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./mrcli.yaml or ~/.mediumroast/mrcli.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().String("source", "", "override source.type (api, github, files, postgres)")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newListCmd(p))
	cmd.AddCommand(newReportCmd(p))
	cmd.AddCommand(newSyncCmd(p))
	cmd.AddCommand(newMirrorCmd(p))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command tree with ctx, logging any failure.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	return err
}

// initializeConfig reads the config file and environment into v and binds the
// overriding flags of cmd.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("expanding config path: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mediumroast"))
		}
		v.SetConfigName("mrcli")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("MRCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	for name, key := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// getConfigFromContext returns the configuration stored by the root command.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}

func fallbackLoggerConfig() config.LoggerConfig {
	return config.LoggerConfig{Level: "info", Format: "console", ServiceName: "mrcli"}
}
