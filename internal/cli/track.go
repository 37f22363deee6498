package cli

import (
	"fmt"
	"strconv"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track ORIGIN[,ORIGIN...] DEST[,DEST...] YYYY-MM-DD [TARGET_PRICE]",
	Short: "Start tracking flight prices",
	Long: `Create a price alert for every origin/destination pair on the given date.
At most 6 routes can be tracked in one call. You are notified when the price
reaches TARGET_PRICE or drops more than 5% since the previous check.`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := monitor.TrackRequest{Origins: args[0], Destinations: args[1], Date: args[2]}
	if len(args) == 4 {
		req.TargetPrice, err = parseTargetPrice(args[3])
		if err != nil {
			return err
		}
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
	req.OwnerID = owner.ID
	req.NotifyTarget = owner.NotifyTarget

	tracked, err := a.service.Track(cmd.Context(), req)
	for _, t := range tracked {
		fmt.Printf("Tracking %s on %s (id %s)\n", t.Alert.Route(), model.FormatDate(t.Alert.DepartureDate), t.Alert.ShortID())
		fmt.Printf("  Target:  %s\n", formatPrice(t.Alert.TargetPrice))
		if t.Quote == nil {
			fmt.Printf("  Current: unavailable, will retry on the next check\n")
			continue
		}
		fmt.Printf("  Current: $%.2f %s", t.Quote.Price, t.Quote.Currency)
		if t.Quote.Carrier != "" {
			fmt.Printf(" (%s, %d stops)", t.Quote.Carrier, t.Quote.Stops)
		}
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	return nil
}

// parseTargetPrice rejects anything that is not a positive finite number, including "inf" and "NaN".
func parseTargetPrice(s string) (*float64, error) {
	target, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &model.ValidationError{Field: "target_price", Reason: fmt.Sprintf("%q is not a number", s)}
	}
	if !model.ValidPrice(target) {
		return nil, &model.ValidationError{Field: "target_price", Reason: fmt.Sprintf("%q is not a positive finite price", s)}
	}
	return &target, nil
}
