package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"optrisk/config"
	"optrisk/engine"
	"optrisk/journal"
	"optrisk/logs"
	"optrisk/risk"
	"optrisk/state"
)

var (
	checkSymbol   string
	checkPremium  float64
	checkQty      int
	checkMult     int
	checkStopPct  float64
	checkClosing  bool
	checkGameplan string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a proposed trade through the pre-trade check pipeline",
	Long: `Builds an engine from the configured state blob and runs one proposed
trade through the full ordered pipeline, printing every check that ran and
every rejection reason.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log, err := logs.New(cfg.Log)
		if err != nil {
			return err
		}

		limits := cfg.Account.Limits()
		if checkGameplan != "" {
			gp, err := config.LoadGameplan(checkGameplan, limits)
			if err != nil {
				return err
			}
			limits = gp.Apply(limits)
		}

		eng, restored := engine.NewFromStore(limits, engine.Options{
			Store:   state.NewFileStore(cfg.State.Path),
			Journal: journal.Nop{},
			Logger:  log,
		})
		defer eng.Close()
		if !restored {
			fmt.Println("NOTE: no usable persisted state; engine is in fail-safe mode")
		}

		trade := risk.ProposedTrade{
			Symbol:     checkSymbol,
			Action:     risk.Buy,
			Premium:    decimal.NewFromFloat(checkPremium),
			Multiplier: checkMult,
			Quantity:   checkQty,
			StopPct:    decimal.NewFromFloat(checkStopPct),
			IsClosing:  checkClosing,
		}

		res := eng.PreTradeCheck(trade, engine.AccountSnapshot{})
		fmt.Printf("checks run: %v\n", res.ChecksRun)
		if res.Allowed {
			fmt.Printf("APPROVED (cost $%s)\n", trade.Cost().StringFixed(2))
			if res.ReservationID != "" {
				// riskctl only probes; give the headroom back.
				eng.ReleaseExposure(res.ReservationID)
			}
			return nil
		}
		fmt.Println("REJECTED:")
		for _, v := range res.Violations {
			fmt.Printf("  [%s] %s\n", v.Code, v.Msg)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkSymbol, "symbol", "SPY", "underlying symbol")
	checkCmd.Flags().Float64Var(&checkPremium, "premium", 1.00, "per-contract premium")
	checkCmd.Flags().IntVar(&checkQty, "qty", 1, "contract quantity")
	checkCmd.Flags().IntVar(&checkMult, "multiplier", 100, "contract multiplier")
	checkCmd.Flags().Float64Var(&checkStopPct, "stop-pct", 0.25, "stop-loss fraction off entry")
	checkCmd.Flags().BoolVar(&checkClosing, "closing", false, "proposed order closes an existing position")
	checkCmd.Flags().StringVar(&checkGameplan, "gameplan", "", "gameplan file tightening the limits")
	rootCmd.AddCommand(checkCmd)
}
