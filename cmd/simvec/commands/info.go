package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print snapshot statistics",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDB(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Snapshot:\t%s\n", viper.GetString("snapshot"))
	fmt.Fprintf(w, "Index:\t%s\n", db.Kind())
	fmt.Fprintf(w, "Metric:\t%s\n", db.Metric())
	fmt.Fprintf(w, "Dimension:\t%d\n", db.Dimension())
	fmt.Fprintf(w, "Records:\t%d\n", db.Len())
	fmt.Fprintf(w, "Tombstone ratio:\t%.2f\n", db.TombstoneRatio())
	return w.Flush()
}
