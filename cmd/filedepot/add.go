package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/filedepot/filedepot"
	"github.com/filedepot/filedepot/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <path1> [path2] ...",
	Short: "Adopt files already present in the storage directory",
	Long: `Register files that already exist in the storage directory without
going through an upload. Paths are relative to the storage root.

This is useful when files were placed in storage out of band (rsync,
a mounted volume, a migration) and need metadata records.

Examples:
  # Adopt a single file into the default collection
  filedepot add photos/cat.jpg

  # Adopt into a specific collection with an explicit content type
  filedepot add --collection images --type image/png logo.png

  # Adopt on behalf of a user
  filedepot add --user-id u123 report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addCollection string
	addType       string
	addUserID     string
	addQuiet      bool
)

func init() {
	addCmd.Flags().StringVarP(&addCollection, "collection", "c", "files", "collection to add files to")
	addCmd.Flags().StringVarP(&addType, "type", "t", "", "content type (default: detected from extension)")
	addCmd.Flags().StringVarP(&addUserID, "user-id", "u", "", "owner user id to record")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	d, err := openDepot(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	coll, err := d.collection(addCollection)
	if err != nil {
		return err
	}

	added := 0
	skipped := 0

	for _, path := range args {
		opts := filedepot.FileDescriptor{
			Type:   addType,
			UserID: addUserID,
		}

		rec, addErr := coll.AddFile(ctx, path, opts, false)
		if errors.Is(addErr, filedepot.ErrInvalidInput) {
			skipped++
			if !addQuiet {
				slog.Warn("skipped", "path", path, "err", addErr)
			}
			continue
		}
		if addErr != nil {
			return fmt.Errorf("add %s: %w", path, addErr)
		}

		added++
		if !addQuiet {
			slog.Info("added", "id", rec.ID, "name", rec.Name, "type", rec.Type, "size", rec.Size)
		}
	}

	slog.Info("add complete", "added", added, "skipped", skipped)
	return nil
}
