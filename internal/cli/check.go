package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Re-check prices for your alerts now",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
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

	res, err := a.service.Check(cmd.Context(), owner.ID)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	if len(res.Results) == 0 {
		fmt.Println("No active alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tROUTE\tDATE\tPRICE\tCHANGE\tSTATUS\n")
	for _, r := range res.Results {
		price, change := "-", "-"
		if r.Quote != nil {
			price = fmt.Sprintf("$%.2f", r.Quote.Price)
		}
		if d, ok := r.Change(); ok {
			change = fmt.Sprintf("%+.2f", d)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Alert.ShortID(), r.Alert.Route(), model.FormatDate(r.Alert.DepartureDate), price, change, checkStatus(r))
	}
	w.Flush()

	fmt.Printf("\nChecked %d, unavailable %d, skipped %d, notified %d\n", res.Checked, res.Unavailable, res.Skipped, res.Notified)
	return nil
}

func checkStatus(r monitor.CheckResult) string {
	if r.Status == monitor.StatusChecked && r.Decision.Notify {
		return string(r.Decision.Reason)
	}
	return string(r.Status)
}
