package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/TagSync"
)

const defaultConfigPath = "./data/config.yaml"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tagsync: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tagsync",
		Short: "TCP tagging time-synchronization service",
		Long: `TagSync receives stimulation tags over TCP, dates them on the
acquisition sample axis and hands the resulting stimulations to SQL or NATS
sinks through a durable journal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newStatsCommand())
	cmd.AddCommand(newSendCommand())
	cmd.AddCommand(newReplayCommand())

	return cmd
}

func newRunCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the runtime using the provided config",
		Example: `  tagsync run --config ./data/config.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := tagsync.Conf(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := flow.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "path to configuration file")
	return cmd
}

func newValidateCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the runtime",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tagsync.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config %s looks good\n", cfgPath)
			fmt.Fprintf(out, "  tagging   %s\n", cfg.Tagging.Address())
			fmt.Fprintf(out, "  mode      %s (%d Hz, %d samples/block)\n",
				cfg.Acquisition.Mode, cfg.Acquisition.SamplingRate, cfg.Acquisition.BlockSize)
			fmt.Fprintf(out, "  sink      %s\n", cfg.Sink.Driver)
			if cfg.NATS.URL != "" {
				fmt.Fprintf(out, "  nats      %s -> %s\n", cfg.NATS.URL, cfg.NATS.Subject)
			}
			if cfg.OPCUA != nil {
				fmt.Fprintf(out, "  opcua     %s (%d trigger nodes)\n", cfg.OPCUA.Endpoint, len(cfg.OPCUA.Nodes))
			}
			fmt.Fprintf(out, "  journal   %s\n", cfg.Journal.Dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "path to configuration file to validate")
	return cmd
}
