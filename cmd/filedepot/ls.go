package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filedepot/filedepot"
	"github.com/filedepot/filedepot/config"
)

var lsCmd = &cobra.Command{
	Use:     "ls [flags]",
	Aliases: []string{"list"},
	Short:   "List files in a collection",
	Long: `List files in a collection, oldest first.

Examples:
  filedepot ls
  filedepot ls --collection images --limit 20
  filedepot ls --user-id u123`,
	Args: cobra.NoArgs,
	RunE: runLs,
}

var (
	lsCollection string
	lsUserID     string
	lsLimit      int
	lsSkip       int
	lsLong       bool
)

func init() {
	lsCmd.Flags().StringVarP(&lsCollection, "collection", "c", "files", "collection to list")
	lsCmd.Flags().StringVarP(&lsUserID, "user-id", "u", "", "only list files owned by this user")
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "l", 100, "max results")
	lsCmd.Flags().IntVar(&lsSkip, "skip", 0, "number of results to skip")
	lsCmd.Flags().BoolVar(&lsLong, "long", false, "show created time and user id")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
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

	coll, err := d.collection(lsCollection)
	if err != nil {
		return err
	}

	fc, err := coll.Find(ctx, filedepot.Query{UserID: lsUserID}, filedepot.FindOptions{
		Skip:  lsSkip,
		Limit: lsLimit,
	})
	if err != nil {
		return fmt.Errorf("list %s: %w", lsCollection, err)
	}

	recs, err := fc.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("list %s: %w", lsCollection, err)
	}

	if len(recs) == 0 {
		fmt.Println("no files")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if lsLong {
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE\tCREATED\tUSER")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.Name, rec.Type, humanize.Bytes(uint64(rec.Size)),
				humanize.Time(rec.CreatedAt), rec.UserID)
		}
	} else {
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.ID, rec.Name, rec.Type, humanize.Bytes(uint64(rec.Size)))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	total, err := fc.Count(ctx)
	if err != nil {
		return fmt.Errorf("count %s: %w", lsCollection, err)
	}
	fmt.Printf("%d file(s)\n", total)
	return nil
}
