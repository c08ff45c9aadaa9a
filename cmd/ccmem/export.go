package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adestefa/ccmem/internal/server"
	"github.com/adestefa/ccmem/internal/store"
)

// NewExportCommand writes a JSON snapshot of the work records.
func NewExportCommand(root *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of stories, tasks, defects and landmines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, log, err := root.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}

			if out == "" || out == "-" {
				return writeSnapshot(cmd.OutOrStdout(), snap)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := writeSnapshot(f, snap); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}
			log.Info("snapshot exported", "path", out, "stories", len(snap.Stories), "tasks", len(snap.Tasks))
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d stories, %d tasks and %d landmines to %s\n",
				len(snap.Stories), len(snap.Tasks), len(snap.Landmines), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func writeSnapshot(w io.Writer, snap *store.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// NewVersionCommand prints the build version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ccmem v%s\n", server.Version)
		},
	}
}
