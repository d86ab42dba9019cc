package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ghalamif/TagSync/internal/adapters/journal"
	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

type replayRecord struct {
	Entry uint64 `json:"entry"`
	domain.Event
	Seconds float64 `json:"date_seconds"`
}

func newReplayCommand() *cobra.Command {
	var (
		dir  string
		from uint64
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print journaled stimulations as JSON lines",
		Long: `Read the stimulation journal and print each entry as one JSON object per
line. The journal is opened read-only, so a running service is not disturbed.`,
		Example: `  tagsync replay --dir ./data/journal
  tagsync replay --dir ./data/journal --from 120`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			path := filepath.Join(dir, journal.LogFileName)
			err := journal.IterateFile(path, ports.EntryID(from), func(id ports.EntryID, e domain.Event) error {
				return enc.Encode(replayRecord{Entry: uint64(id), Event: e, Seconds: e.Date.Seconds()})
			})
			if err != nil {
				return fmt.Errorf("replay %s: %w", path, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./data/journal", "journal directory")
	cmd.Flags().Uint64Var(&from, "from", 1, "first entry id to print")
	return cmd
}
