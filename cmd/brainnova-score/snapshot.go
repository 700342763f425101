package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brainnova/brainnova-score/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage local SQLite snapshots of the indicator tables",
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <fixture.yaml> <snapshot.db>",
	Short: "Replace the content of a SQLite snapshot with a YAML fixture",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := readSnapshot(args[0])
		if err != nil {
			return err
		}

		s, err := store.NewSQLite(args[1])
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		if err := s.LoadSnapshot(ctx, snap); err != nil {
			return err
		}
		logger.Info("snapshot loaded",
			"path", args[1],
			"dimensions", len(snap.Dimensions),
			"subdimensions", len(snap.Subdimensions),
			"indicators", len(snap.Indicators),
			"observations", len(snap.Observations),
		)
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotLoadCmd)
}

func readSnapshot(path string) (*store.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read fixture")
	}
	var snap store.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "parse fixture %s", path)
	}
	return &snap, nil
}
