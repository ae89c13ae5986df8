package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nudge/internal/app"
	"nudge/internal/eventbus"
	"nudge/internal/reminder"
	"nudge/internal/ui/tui"
	"nudge/pkg/logx"
)

const stopTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "nudge:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath, envPath string

	root := &cobra.Command{
		Use:           "nudge",
		Short:         "Recurring desktop reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// .env is optional; it usually carries the telegram token.
			if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envPath, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./nudge.yaml", "path to config (yaml or json)")
	root.PersistentFlags().StringVar(&envPath, "env", ".env", "optional dotenv file")

	root.AddCommand(newRunCmd(&cfgPath))
	root.AddCommand(newTUICmd(&cfgPath))
	root.AddCommand(newCheckCmd())
	root.AddCommand(newHistoryCmd(&cfgPath))
	return root
}

// signalReason maps the received signal to a stop reason.
func signalReason(sig os.Signal) app.StopReason {
	switch sig {
	case os.Interrupt:
		return app.StopSIGINT
	case syscall.SIGTERM:
		return app.StopSIGTERM
	}
	return app.StopUnknown
}

func stop(a *app.App, reason app.StopReason) error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.Stop(ctx, reason)
}

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run headless (service mode)",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := app.New(*cfgPath, app.Options{})
			if err != nil {
				return err
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)

			if err := a.Start(context.Background()); err != nil {
				_ = stop(a, app.StopFatalError)
				return fmt.Errorf("start: %w", err)
			}

			reason := app.StopUnknown
			select {
			case sig := <-sigs:
				reason = signalReason(sig)
			case <-a.Done():
				reason = app.StopFatalError
			}
			fatal := a.Err()
			if err := stop(a, reason); err != nil {
				return err
			}
			return fatal
		},
	}
}

func newTUICmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := app.New(*cfgPath, app.Options{Interactive: true})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGTERM)
			defer signal.Stop(sigs)

			events, unsub := a.Bus().Subscribe(256, "reminder.", "notifier.", eventbus.SchedulerTick)
			defer unsub()

			// The app outlives the UI context so Stop can drain the notifier.
			if err := a.Start(context.Background()); err != nil {
				_ = stop(a, app.StopFatalError)
				return fmt.Errorf("start: %w", err)
			}

			sigReason := make(chan app.StopReason, 1)
			go func() {
				select {
				case <-sigs:
					sigReason <- app.StopSIGTERM
					cancel()
				case <-a.Done():
					cancel()
				case <-ctx.Done():
				}
			}()

			model := tui.NewModel(a.Registry(), tui.Options{
				Events: events,
				Logs:   a.Logs(),
			})
			runErr := tui.Run(ctx, model)
			cancel()

			reason := app.StopUserQuit
			select {
			case r := <-sigReason:
				reason = r
			default:
			}
			if a.Err() != nil {
				reason = app.StopFatalError
			}
			fatal := a.Err()
			if err := stop(a, reason); err != nil {
				return err
			}
			return errors.Join(runErr, fatal)
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <schedule>",
		Short: "Validate a schedule (\"30\" or \"09:30\") and show when it fires next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := reminder.ParseSchedule(args[0])
			if err != nil {
				return err
			}
			now := time.Now()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "kind:  %s\nlabel: %s\n", s.Kind(), s.Label())
			if s.Kind() == reminder.KindInterval {
				_, _ = fmt.Fprintf(out, "next:  %s (on activation, then every %s)\n", now.Format("15:04"), s.Period())
				return nil
			}
			next := s.Next(now)
			_, _ = fmt.Fprintf(out, "next:  %s (in %s)\n", next.Format("Mon 15:04"), next.Sub(now).Truncate(time.Second))
			return nil
		},
	}
}

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent fires from the fire log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.OpenFireLog(*cfgPath, logx.Nop())
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.RecentFires(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no fires recorded")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "FIRED\tREMINDER\tSINK\tSTATUS\tATTEMPTS\tERROR")
			for _, r := range recs {
				_, _ = fmt.Fprintf(tw, "%s\t#%d %s\t%s\t%s\t%d\t%s\n",
					r.FiredAt.Local().Format("2006-01-02 15:04:05"), r.ReminderID, r.Name, r.Sink, r.Status, r.Attempts, r.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
