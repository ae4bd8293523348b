package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Compact tombstones out of the snapshot's index",
	Long: `Rebuild the snapshot's index from its live records, dropping tombstoned
nodes, and write the result back.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDB(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()

	before := db.TombstoneRatio()
	if err := db.Rebuild(ctx); err != nil {
		return err
	}

	if err := saveDB(ctx, db); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	fmt.Printf("Rebuilt index: %d live records, tombstone ratio %.2f -> %.2f\n",
		db.Len(), before, db.TombstoneRatio())
	return nil
}
