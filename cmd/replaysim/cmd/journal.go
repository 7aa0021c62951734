package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/replaysim/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display journal records from a SQLite database.

Subcommands:
  sessions - List recorded session IDs
  trades   - List the trades of a session
  trade    - Get details of a specific trade by ID
  day      - List trades on a specific day
  report   - Summarise a session as an Org report

Examples:
  replaysim journal sessions
  replaysim journal trade <trade-id>
  replaysim journal report <session-id> --balance 100000`,
}

var journalSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE:  runJournalSessions,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <session-id>",
	Short: "List the trades of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades on a specific day (UTC)",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalReportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Summarise a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalReport,
}

var (
	journalDBPath  string
	journalBalance float64
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSessionsCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./replaysim.sqlite", "path to SQLite journal DB")
	journalReportCmd.Flags().Float64Var(&journalBalance, "balance", 100000, "starting balance of the session")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalSessions(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ids, err := j.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTradesBySession(args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.UTC, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	recs, err := j.ListTradesBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	sessionID := args[0]
	trades, err := j.ListTradesBySession(sessionID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	equity, err := j.ListEquityBySession(sessionID)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	rep := journal.SessionReport{SessionID: sessionID, StartBalance: journalBalance}
	if len(trades) > 0 {
		rep.Instrument = trades[0].Instrument
	}
	if len(equity) > 0 {
		rep.Created = equity[0].Time
	}
	rep.Summarize(trades, equity)
	return rep.WriteSessionReport(cmd.OutOrStdout())
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
