package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search ORIGIN[,ORIGIN...] DEST[,DEST...] START [END]",
	Short: "Find the cheapest fare across routes and dates",
	Long: `Search every origin/destination pair for each date from START to END and
report the cheapest fare. Nothing is tracked. At most 30 lookups per search.`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Bool("all", false, "Show every fare found, not just the cheapest")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	showAll, _ := cmd.Flags().GetBool("all")

	req := monitor.SearchRequest{Origins: args[0], Destinations: args[1], Start: args[2]}
	if len(args) == 4 {
		req.End = args[3]
	}

	a, err := initApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if res.Best == nil {
		fmt.Printf("No fares found across %d lookups.\n", res.Routes)
		return nil
	}

	b := res.Best
	fmt.Printf("Cheapest: %s → %s on %s for $%.2f %s\n", b.Origin, b.Destination, model.FormatDate(b.Date), b.Price, b.Currency)
	if b.Carrier != "" {
		fmt.Printf("  %s, %d stops, departs %s\n", b.Carrier, b.Stops, b.DepartureTime)
	}
	if b.BookingURL != "" {
		fmt.Printf("  Book: %s\n", b.BookingURL)
	}
	fmt.Printf("Checked %d lookups, %d unavailable.\n", res.Routes, res.Unavailable)

	if showAll {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  ROUTE\tDATE\tPRICE\tCARRIER\tSTOPS\n")
		for _, q := range res.Quotes {
			fmt.Fprintf(w, "  %s → %s\t%s\t$%.2f\t%s\t%d\n",
				q.Origin, q.Destination, model.FormatDate(q.Date), q.Price, q.Carrier, q.Stops)
		}
		w.Flush()
	}
	return nil
}
