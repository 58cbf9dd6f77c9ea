package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/ephemeris-registry/engine/kpl"
	"github.com/signalsfoundry/ephemeris-registry/internal/config"
	"github.com/signalsfoundry/ephemeris-registry/internal/logging"
	"github.com/signalsfoundry/ephemeris-registry/kernel"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	v   *viper.Viper
	cfg config.Config
	log logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "ephemctl",
		Short:         "Load ephemeris kernels and inspect their coverage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .ephemctl.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.Bool("recursive", true, "descend into subdirectories")
	flags.Bool("follow-links", false, "follow symbolic links while walking")
	flags.String("pattern", "", `only consider files matching this glob, e.g. "**/*.bsp"`)
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("kernels.recursive", flags.Lookup("recursive"))
	_ = a.v.BindPFlag("kernels.follow_links", flags.Lookup("follow-links"))
	_ = a.v.BindPFlag("kernels.pattern", flags.Lookup("pattern"))

	root.AddCommand(newLoadCmd(a), newWatchCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName(".ephemctl")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}
	config.BindEnv(a.v)

	// A missing default config file is fine; an explicit one must exist.
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	a.log = logging.New(lc)
	return nil
}

// walkOptions turns the kernels section into load options.
func (a *app) walkOptions() []kernel.Option {
	return []kernel.Option{
		kernel.WithRecursive(a.cfg.Kernels.Recursive),
		kernel.WithFollowLinks(a.cfg.Kernels.FollowLinks),
		kernel.WithPattern(a.cfg.Kernels.Pattern),
	}
}

func (a *app) newRegistry(opts ...kernel.RegistryOption) *kernel.Registry {
	opts = append([]kernel.RegistryOption{kernel.WithLogger(a.log)}, opts...)
	return kernel.NewRegistry(kpl.New(), opts...)
}
