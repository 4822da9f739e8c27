package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Djttt/rpsls-battle/internal/config"
	"github.com/Djttt/rpsls-battle/internal/discovery"
	"github.com/Djttt/rpsls-battle/internal/relay"
)

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RPSLS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "rpsls-server",
		Short:         "LAN multiplayer rock-paper-scissors-lizard-spock backend.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: RPSLS_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", relay.DefaultPeerPort, "port to listen on (env: RPSLS_PORT)")
	fs.IntVar(&cfg.DiscoveryPort, "discovery-port", discovery.DefaultPort, "UDP port for peer discovery broadcasts (env: RPSLS_DISCOVERY_PORT)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN for the leaderboard; empty keeps stats in memory (env: RPSLS_DATABASE_URL)")
	fs.IntVar(&cfg.InviteCap, "invite-cap", relay.DefaultInboxCap, "max queued invites per player, oldest dropped first (env: RPSLS_INVITE_CAP)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log at debug level with console output (env: RPSLS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("rpsls-server v{{.Version}}\n")

	return cmd
}
