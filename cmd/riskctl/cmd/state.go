package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"optrisk/breaker"
	"optrisk/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the persisted risk state blob",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, restored := state.LoadOrDefault(state.NewFileStore(cfg.State.Path))
		if !restored {
			fmt.Printf("no usable state at %s; showing the fail-safe default\n", cfg.State.Path)
		}

		fmt.Printf("last updated:     %s\n", st.LastUpdated.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("circuit breaker:  %s\n", st.Breaker)
		fmt.Printf("daily losses:     $%s\n", st.Guard.DailyLosses.StringFixed(2))
		fmt.Printf("weekly losses:    $%s\n", st.Guard.WeeklyLosses.StringFixed(2))
		fmt.Printf("weekly governor:  %v\n", st.Guard.WeeklyGovernor)
		fmt.Printf("pivot count:      %d\n", st.Guard.PivotCount)
		fmt.Printf("data quarantine:  %v\n", st.Guard.DataQuarantine)
		fmt.Printf("day trades held:  %d (limit %d)\n", len(st.PDT.TradeDates), st.PDT.Limit)
		fmt.Printf("open reservations:%d\n", len(st.Reservations))

		if st.Breaker == breaker.Open {
			fmt.Println("trading is HALTED")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
