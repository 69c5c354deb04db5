package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/filedepot/filedepot"
	"github.com/filedepot/filedepot/config"
)

var rmCmd = &cobra.Command{
	Use:     "rm [flags] <id1> [id2] ...",
	Aliases: []string{"remove"},
	Short:   "Remove files from a collection",
	Long: `Remove files by id. Every stored version of each file is unlinked
from storage before its metadata record is deleted.

Examples:
  # Remove a single file
  filedepot rm 3f2a9c...

  # Remove all files owned by a user
  filedepot rm --user-id u123

  # Remove from a specific collection
  filedepot rm --collection images 3f2a9c...`,
	RunE: runRm,
}

var (
	rmCollection string
	rmUserID     string
	rmQuiet      bool
)

func init() {
	rmCmd.Flags().StringVarP(&rmCollection, "collection", "c", "files", "collection to remove files from")
	rmCmd.Flags().StringVarP(&rmUserID, "user-id", "u", "", "remove every file owned by this user")
	rmCmd.Flags().BoolVarP(&rmQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 0 && rmUserID == "" {
		return errors.New("nothing to remove: pass file ids or --user-id")
	}

	ctx := cmd.Context()

	d, err := openDepot(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	coll, err := d.collection(rmCollection)
	if err != nil {
		return err
	}

	var removed int64
	notFound := 0

	if rmUserID != "" {
		count, rmErr := coll.RemoveByQuery(ctx, filedepot.Query{UserID: rmUserID})
		if rmErr != nil {
			return fmt.Errorf("remove by user %s: %w", rmUserID, rmErr)
		}
		removed += count
	}

	for _, id := range args {
		count, rmErr := coll.RemoveByQuery(ctx, filedepot.Query{ID: id})
		if rmErr != nil {
			return fmt.Errorf("remove %s: %w", id, rmErr)
		}
		if count == 0 {
			notFound++
			if !rmQuiet {
				slog.Warn("not found", "id", id)
			}
			continue
		}
		removed += count
		if !rmQuiet {
			slog.Info("removed", "id", id)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}
