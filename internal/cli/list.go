package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your active price alerts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
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

	list, err := a.service.List(cmd.Context(), owner.ID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No active alerts.")
		return nil
	}

	today := model.DateOf(a.scheduler.Now())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tROUTE\tDATE\tTARGET\tLAST\n")
	for _, al := range list {
		date := model.FormatDate(al.DepartureDate)
		if al.IsPast(today) {
			date += " (departed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			al.ShortID(), al.Route(), date, formatPrice(al.TargetPrice), formatPrice(al.LastPrice))
	}
	return w.Flush()
}
