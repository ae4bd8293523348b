package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/simvec/simvec"
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Query the snapshot for nearest neighbors",
	Long: `Query the snapshot for the k nearest neighbors of a query vector.

The query is either an explicit vector (--vector "0.1,0.2,...") or a text
argument embedded with the configured embedder.

Examples:
  simvec search --vector "0.9,0.1" -k 5
  simvec search "a bench in the park" -k 3 --openai-api-key $KEY`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("top-k", "k", 10, "number of neighbors to return")
	searchCmd.Flags().Int("ef", 0, "search beam width (0 = index default)")
	searchCmd.Flags().String("vector", "", "query vector as comma-separated floats")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	k, _ := cmd.Flags().GetInt("top-k")
	ef, _ := cmd.Flags().GetInt("ef")
	rawVector, _ := cmd.Flags().GetString("vector")

	db, err := openDB(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()

	var sb *simvec.SearchBuilder[payload]
	switch {
	case rawVector != "":
		query, err := parseVector(rawVector)
		if err != nil {
			return err
		}
		sb = db.Search(query)
	case len(args) == 1:
		sb, err = db.SearchText(ctx, args[0])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --vector or a text argument is required")
	}

	results, err := sb.KNN(k).EF(ef).Execute(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tPAYLOAD")
	for _, r := range results {
		meta, _ := json.Marshal(r.Payload)
		fmt.Fprintf(w, "%s\t%.4f\t%s\n", r.ID, r.Score, meta)
	}
	return w.Flush()
}

func parseVector(raw string) ([]float32, error) {
	parts := strings.Split(raw, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %q: %w", part, err)
		}
		vector = append(vector, float32(v))
	}
	return vector, nil
}
