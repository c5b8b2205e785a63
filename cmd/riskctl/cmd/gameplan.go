package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"optrisk/config"
)

var gameplanCmd = &cobra.Command{
	Use:   "gameplan <file>",
	Short: "Validate a gameplan document against the account hard limits",
	Long: `Loads a gameplan (YAML or JSON) and checks its hard_limits block
against the account-level parameters. A gameplan may only tighten limits;
every loosening violation is reported, not just the first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gp, err := config.LoadGameplan(args[0], cfg.Account.Limits())
		if err != nil {
			var gpe *config.GameplanError
			if errors.As(err, &gpe) {
				fmt.Println("REJECTED:")
				for _, v := range gpe.Violations {
					fmt.Printf("  - %s\n", v)
				}
			}
			return err
		}

		limits := gp.Apply(cfg.Account.Limits())
		fmt.Printf("gameplan %s OK\n", args[0])
		fmt.Printf("  position limit: $%s\n", limits.PositionLimit().StringFixed(2))
		fmt.Printf("  per-trade risk: $%s\n", limits.RiskLimit().StringFixed(2))
		fmt.Printf("  daily loss:     $%s\n", limits.DailyLossLimit().StringFixed(2))
		fmt.Printf("  weekly drawdown:$%s\n", limits.WeeklyDrawdownLimit().StringFixed(2))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gameplanCmd)
}
