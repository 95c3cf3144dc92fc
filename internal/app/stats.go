package app

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryclient/internal/models"
	"libraryclient/internal/stats"
)

func (c *cli) newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Borrow statistics (admins)",
	}
	cmd.AddCommand(
		c.newStatsMonthlyCmd(),
		c.newStatsYearCmd(),
		c.newStatsDashboardCmd(),
		c.newStatsHistoryCmd(),
	)
	return cmd
}

func (c *cli) newStatsMonthlyCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Show the statistic of one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := c.app.Session().MonthlyStatistic(cmd.Context(), month, year)
			if err != nil {
				return err
			}
			result := models.MonthlyStatistic{Year: year, Month: month, Value: value}
			return c.render(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s %d: %s\n", time.Month(month), year, value)
			})
		},
	}

	now := time.Now()
	cmd.Flags().IntVar(&year, "year", now.Year(), "Year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Month, 1 to 12")
	return cmd
}

func (c *cli) newStatsYearCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "year",
		Short: "Fetch all twelve months of a year at once",
		Long: `Fetch all twelve monthly statistics of a year concurrently.

A month that cannot be fetched is shown as unavailable; the other months are
not affected. When the archive is enabled the fetched values are saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := c.app.Session().MonthlyStatistics(cmd.Context(), year)
			if err != nil {
				return err
			}
			return c.render(cmd, values, func(w io.Writer) {
				header(w, "Statistics %d", year)
				for m := 1; m <= stats.MonthsPerYear; m++ {
					v := values[m]
					if stats.IsNoData(v) {
						v = color.RedString("unavailable")
					}
					fmt.Fprintf(w, "  %-10s %s\n", time.Month(m), v)
				}
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Year")
	return cmd
}

func (c *cli) newStatsDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the returned on time, returned late and outstanding counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.Session().Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(cmd, d, func(w io.Writer) {
				fmt.Fprintf(w, "Returned on time: %s\n", color.GreenString("%d", d.ReturnedOnTime))
				fmt.Fprintf(w, "Returned late:    %s\n", color.YellowString("%d", d.ReturnedLate))
				fmt.Fprintf(w, "Not returned:     %s\n", color.RedString("%d", d.NotReturned))
			})
		},
	}
}

func (c *cli) newStatsHistoryCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived monthly statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := c.app.Session().StatisticsHistory(cmd.Context(), year)
			if err != nil {
				return err
			}
			return c.render(cmd, history, func(w io.Writer) {
				if len(history) == 0 {
					fmt.Fprintf(w, "Nothing archived for %d.\n", year)
					return
				}
				header(w, "Archived statistics %d", year)
				for _, s := range history {
					fmt.Fprintf(w, "  %-10s %-8s %s\n", time.Month(s.Month), s.Value,
						color.HiBlackString("fetched "+s.FetchedAt.Format(time.RFC3339)))
				}
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Year")
	return cmd
}
