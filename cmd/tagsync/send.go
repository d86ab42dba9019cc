package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghalamif/TagSync/internal/adapters/tcptag"
	"github.com/ghalamif/TagSync/internal/domain"
)

type sendOptions struct {
	addr      string
	id        uint64
	timestamp float64
	flags     uint64
	count     int
	interval  time.Duration
	timeout   time.Duration
}

func newSendCommand() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send tags to a tagging server",
		Long: `Send one or more tags to a tagging server.

Without --timestamp the server stamps each tag on receipt. A timestamp is
given in seconds on the server clock axis and is sent as fixed-point time
unless --flags overrides the flag word.`,
		Example: `  tagsync send --addr 127.0.0.1:15361 --id 33025
  tagsync send --addr 127.0.0.1:15361 --id 33025 --count 10 --interval 500ms`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tag := domain.Tag{Identifier: opts.id}
			if opts.timestamp > 0 {
				tag.Timestamp = domain.SecondsToTime(opts.timestamp)
				tag.Flags = domain.FlagFPTime | domain.FlagAutostampClientSide
			}
			if cmd.Flags().Changed("flags") {
				tag.Flags = domain.TagFlags(opts.flags)
			}
			return sendTags(cmd.OutOrStdout(), opts, tag)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", fmt.Sprintf("127.0.0.1:%d", tcptag.DefaultPort), "tagging server address")
	cmd.Flags().Uint64Var(&opts.id, "id", 0, "stimulation identifier (required)")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().Float64Var(&opts.timestamp, "timestamp", 0, "tag timestamp in seconds (0 lets the server stamp)")
	cmd.Flags().Uint64Var(&opts.flags, "flags", 0, "raw flag word")
	cmd.Flags().IntVar(&opts.count, "count", 1, "number of tags to send")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "pause between tags")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "dial timeout")
	return cmd
}

func sendTags(out io.Writer, opts *sendOptions, tag domain.Tag) error {
	if opts.count <= 0 {
		return fmt.Errorf("count must be positive")
	}

	client, err := tcptag.Dial(opts.addr, opts.timeout)
	if err != nil {
		return err
	}
	defer client.Close()

	for i := 0; i < opts.count; i++ {
		if i > 0 && opts.interval > 0 {
			time.Sleep(opts.interval)
		}
		if err := client.SendTag(tag); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "sent %d tag(s) id=%d to %s\n", opts.count, tag.Identifier, opts.addr)
	return nil
}
