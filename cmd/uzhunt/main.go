// Command uzhunt finds social-media handles ending in "uz" and checks whether
// the matching .uz domains are registered.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/uzhunt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger

	// bindings maps config keys to flag names per command. Several commands
	// share keys, so only the executing command's flags are bound.
	bindings map[*cobra.Command]map[string]string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), bindings: make(map[*cobra.Command]map[string]string)}

	root := &cobra.Command{
		Use:           "uzhunt",
		Short:         "uzhunt - discover free .uz domains from Telegram and Instagram handles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to a YAML, TOML or JSON config file")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newReportCmd(a))

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	for key, flag := range a.bindings[cmd] {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// bind maps a command flag onto a config key so flags override file and env.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	if a.bindings[cmd] == nil {
		a.bindings[cmd] = make(map[string]string)
	}
	a.bindings[cmd][key] = flag
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
