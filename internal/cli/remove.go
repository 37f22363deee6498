package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove ID_PREFIX",
	Aliases: []string{"rm"},
	Short:   "Stop tracking an alert",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	alert, err := a.service.Remove(cmd.Context(), owner.ID, args[0])
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	fmt.Printf("Stopped tracking %s on %s (id %s)\n", alert.Route(), model.FormatDate(alert.DepartureDate), alert.ShortID())
	return nil
}
