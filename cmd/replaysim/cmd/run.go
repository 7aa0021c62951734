package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/replaysim/replay"
	"github.com/rustyeddy/replaysim/session"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a session headless and print the result",
	Long: `Generate a history from the config, optionally drive it with a CSV script,
then replay to the end and print the session report.

A script row is "ticks,event,arg": advance that many bars, then apply
BUY qty, SELL qty, CLOSE_ALL, ALERT price, REMOVE_ALERT id or SEEK index.

Examples:
  replaysim run -c replay.yaml
  replaysim run --instrument ag2512 --timeframe 15m --seed 7 --script plan.csv
  replaysim run --realtime --speed 50`,
	RunE: runRun,
}

var (
	runInstrument string
	runTimeframe  string
	runSeed       int64
	runScript     string
	runTicks      int
	runRealtime   bool
	runSpeed      int
	runReport     string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runInstrument, "instrument", "", "override session.instrument")
	runCmd.Flags().StringVar(&runTimeframe, "timeframe", "", "override session.timeframe (1m, 5m, 15m, 30m, 1D)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "override session.seed")
	runCmd.Flags().StringVarP(&runScript, "script", "s", "", "CSV script of trades and alerts")
	runCmd.Flags().IntVarP(&runTicks, "ticks", "n", -1, "bars to replay after the script (-1 means to the end)")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "tick on the wall clock instead of as fast as possible")
	runCmd.Flags().IntVar(&runSpeed, "speed", 0, "override session.speed_ms")
	runCmd.Flags().StringVarP(&runReport, "report", "r", "", "write the Org report here instead of stdout")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runInstrument != "" {
		cfg.Session.Instrument = runInstrument
	}
	if runTimeframe != "" {
		cfg.Session.Timeframe = runTimeframe
	}
	if runSeed != 0 {
		cfg.Session.Seed = runSeed
	}
	if runSpeed > 0 {
		cfg.Session.SpeedMS = runSpeed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runScript != "" {
		st, err := a.sess.RunScriptFile(ctx, runScript)
		if err != nil {
			return fmt.Errorf("script: %w", err)
		}
		a.log.Info("script done", "rows", st.Rows, "ticks", st.Ticks, "accepted", st.Accepted, "rejected", st.Rejected)
	}

	if runRealtime {
		if err := playToEnd(ctx, a); err != nil {
			return err
		}
	} else {
		n := runTicks
		if n < 0 {
			n = a.sess.Status().Bars
		}
		if _, err := a.sess.AdvanceBy(n); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if runReport != "" {
		f, err := os.Create(runReport)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		out = f
	}
	rep := a.sess.Summary()
	return rep.WriteSessionReport(out)
}

// playToEnd ticks on the wall clock until the history runs out or ctx is
// cancelled. A session already at its last bar returns at once.
func playToEnd(ctx context.Context, a *app) error {
	if st := a.sess.Status(); st.Ended || st.Cursor >= st.Bars-1 {
		a.log.Info("replay already at the last bar", "cursor", st.Cursor)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := a.sess.Subscribe(func(ev session.Event) {
		if ev.Kind == session.SessionEnded {
			cancel()
		}
	})
	defer unsubscribe()

	a.sess.Play()
	a.log.Info("playing", "interval", a.sess.Interval())
	return replay.NewDriver(a.sess, a.log).Run(ctx)
}
