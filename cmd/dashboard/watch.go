package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/justsurfingit/talent-dashboard/internal/views"
)

var watchCmd = &cobra.Command{
	Use:   "watch [collection...]",
	Short: "Print every change of the signed-in role's collections",
	Long: `Poll the collections of the signed-in role and print a line per commit
or failed poll. With no arguments every collection of the view is watched.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}

	watched := a.view.Collections()
	if len(args) > 0 {
		watched = watched[:0:0]
		for _, name := range args {
			col, err := a.view.Collection(name)
			if err != nil {
				return err
			}
			watched = append(watched, col)
		}
	}
	for _, col := range watched {
		col.OnChange(printStatus)
	}

	if err := a.view.Mount(ctx); err != nil {
		return err
	}
	defer a.view.Unmount()

	fmt.Printf("Watching %d collection(s) as %s, Ctrl-C to stop.\n", len(watched), a.view.Role)
	<-ctx.Done()
	return nil
}

func printStatus(st views.Status) {
	ts := time.Now().Format("15:04:05")
	if st.Error != "" {
		fmt.Printf("%s  %-13s ⚠️  %s (keeping %d records)\n", ts, st.Name, st.Error, st.Records)
		return
	}
	fmt.Printf("%s  %-13s v%d  %d records\n", ts, st.Name, st.Version, st.Records)
}
