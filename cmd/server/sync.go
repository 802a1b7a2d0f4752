package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

var (
	syncType     string
	syncProjects []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync and print the finished run as JSON",
	Long: `Runs a single full or incremental sync in the foreground, waits for it to
reach a terminal status and prints the run. Interrupting the command cancels
the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		var options map[string]interface{}
		if len(syncProjects) > 0 {
			options = map[string]interface{}{"projects": syncProjects}
		}

		run, err := runOnce(ctx, a, models.SyncType(syncType), options)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
		if run.Status != models.RunStatusCompleted {
			return fmt.Errorf("sync run %s finished with status %s", run.ID, run.Status)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncType, "type", string(models.SyncTypeIncremental), "Sync type: full or incremental")
	syncCmd.Flags().StringSliceVar(&syncProjects, "projects", nil, "Restrict the run to these project keys")
}

// runOnce starts a run and blocks until its terminal event. When ctx ends
// first the run is cancelled and its final state is still awaited.
func runOnce(ctx context.Context, a *app, syncType models.SyncType, options map[string]interface{}) (*models.SyncRun, error) {
	started, err := a.orchestrator.StartSync(ctx, syncType, options)
	if err != nil {
		return nil, err
	}

	sub := a.orchestrator.Subscribe(context.Background(), started.ID)
	defer sub.Close()

	// The run may have finished before the subscription existed.
	if run, err := a.orchestrator.GetRun(ctx, started.ID); err == nil && run.Status.Terminal() {
		return run, nil
	}

	done := ctx.Done()
	for {
		select {
		case <-done:
			a.logger.WithField("sync_id", started.ID).Warn("Interrupted, cancelling sync run")
			_ = a.orchestrator.CancelSync(context.Background(), started.ID)
			done = nil
		case event, ok := <-sub.Events():
			if !ok {
				return a.orchestrator.GetRun(context.Background(), started.ID)
			}
			a.logger.WithFields(logrus.Fields{
				"sync_id":           event.RunID,
				"processed_tickets": event.Progress.ProcessedTickets,
				"current_project":   event.Progress.CurrentProject,
			}).Debug("Sync progress")
			if event.Event.Terminal() {
				return a.orchestrator.GetRun(context.Background(), started.ID)
			}
		}
	}
}
