package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history ID_PREFIX",
	Short: "Show the recorded prices of an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := initApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := resolveCaller(cmd.Context(), a)
	if err != nil {
		return err
	}

	hist, err := a.service.History(cmd.Context(), owner.ID, args[0])
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	fmt.Printf("%s on %s (id %s), target %s\n\n",
		hist.Alert.Route(), model.FormatDate(hist.Alert.DepartureDate), hist.Alert.ShortID(), formatPrice(hist.Alert.TargetPrice))
	if len(hist.Observations) == 0 {
		fmt.Println("No prices recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  OBSERVED\tPRICE\n")
	for _, o := range hist.Observations {
		fmt.Fprintf(w, "  %s\t$%.2f\n", o.ObservedAt.Format("2006-01-02 15:04"), o.Price)
	}
	return w.Flush()
}
