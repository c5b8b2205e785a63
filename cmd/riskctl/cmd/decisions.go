package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"optrisk/journal"
)

var decisionsDay string

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List journaled pre-trade decisions for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Journal.Type != "sqlite" {
			return fmt.Errorf("decisions requires a sqlite journal (journal.type=%q)", cfg.Journal.Type)
		}

		day := time.Now()
		if decisionsDay != "" {
			day, err = time.Parse("2006-01-02", decisionsDay)
			if err != nil {
				return fmt.Errorf("parse --day: %w", err)
			}
		}
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		to := from.AddDate(0, 0, 1)

		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		recs, err := j.DecisionsBetween(from, to)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("no decisions recorded")
			return nil
		}
		for _, r := range recs {
			verdict := "APPROVED"
			if !r.Allowed {
				verdict = "REJECTED " + strings.Join(r.Reasons, ",")
			}
			fmt.Printf("%s  %-6s %-4s cost=$%-10s %s\n",
				r.Time.Format("15:04:05"), r.Symbol, r.Action, r.Cost.StringFixed(2), verdict)
		}
		return nil
	},
}

func init() {
	decisionsCmd.Flags().StringVar(&decisionsDay, "day", "", "day to list (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(decisionsCmd)
}
