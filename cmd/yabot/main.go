// Command yabot runs the chat bot with the reference plugins.
//
// Configuration is read from the environment and an optional .env file, see
// yaconfig.Bot for the variables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YaCodeDev/GoYaBotCore/yaconfig"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "yabot",
		Short:         "Run the plugin-based Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap := yalogger.NewBaseLogger(nil).NewLogger()

			var config yaconfig.Bot
			if err := yaconfig.Load(&config, bootstrap); err != nil {
				bootstrap.Errorf("Failed to load config: %v", err)

				return err
			}

			if statusAddr, _ := cmd.Flags().GetString("status-addr"); statusAddr != "" {
				config.StatusAddr = statusAddr
			}

			log := yalogger.NewBaseLogger(config.Log.LoggerConfig()).NewLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, config, log); err != nil {
				log.Errorf("Bot stopped with error: %v", err)

				return err
			}

			return nil
		},
	}

	cmd.Flags().String("status-addr", "", "Override STATUS_ADDR for the status server.")

	cmd.AddCommand(newCheckConfigCmd())

	return cmd
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load the configuration and the role map without connecting",
		RunE: func(*cobra.Command, []string) error {
			log := yalogger.NewBaseLogger(nil).NewLogger()

			var config yaconfig.Bot
			if err := yaconfig.Load(&config, log); err != nil {
				log.Errorf("Failed to load config: %v", err)

				return err
			}

			roleMap, err := parseRoles(config.Roles)
			if err != nil {
				log.Errorf("Failed to parse roles: %v", err)

				return err
			}

			log.Infof("Config is valid: %d roles seeded, status on %s", len(roleMap), config.StatusAddr)

			return nil
		},
	}
}

// shutdownContext outlives the cancelled run context so disposal can finish.
func shutdownContext(config yaconfig.Bot) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.DisposeTimeout)
}
