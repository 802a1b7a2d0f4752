package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/ticket-sync/internal/errors"
	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

type scheduledJob struct {
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	nextRun  time.Time
}

// Schedule registers a recurring run of syncType. An existing job of the same
// type is stopped and replaced.
func (o *Orchestrator) Schedule(syncType models.SyncType, interval time.Duration) error {
	if !syncType.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown sync type %q", syncType), nil)
	}
	if interval <= 0 {
		return apperrors.NewValidationError("schedule interval must be positive", nil)
	}

	o.schedMu.Lock()
	defer o.schedMu.Unlock()

	if existing, ok := o.schedules[syncType]; ok {
		existing.ticker.Stop()
		close(existing.done)
	}

	job := &scheduledJob{
		interval: interval,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		nextRun:  o.now().Add(interval),
	}
	o.schedules[syncType] = job

	o.logger.WithFields(logrus.Fields{
		"sync_type": syncType,
		"interval":  interval.String(),
	}).Info("Scheduled recurring sync")

	go o.runSchedule(syncType, job)
	return nil
}

func (o *Orchestrator) runSchedule(syncType models.SyncType, job *scheduledJob) {
	logger := o.logger.WithFields(logrus.Fields{
		"sync_type": syncType,
		"action":    "scheduled_sync",
	})

	for {
		select {
		case <-o.baseCtx.Done():
			job.ticker.Stop()
			return
		case <-job.done:
			return
		case <-job.ticker.C:
			o.schedMu.Lock()
			job.nextRun = o.now().Add(job.interval)
			o.schedMu.Unlock()

			run, err := o.StartSync(o.baseCtx, syncType, nil)
			switch {
			case apperrors.IsConflict(err):
				logger.WithError(err).Info("Skipping scheduled sync, another run is active")
			case err != nil:
				logger.WithError(err).Error("Scheduled sync failed to start")
			default:
				logger.WithField("sync_id", run.ID).Info("Scheduled sync started")
			}
		}
	}
}

// Unschedule stops the recurring job of syncType
func (o *Orchestrator) Unschedule(syncType models.SyncType) bool {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()

	job, ok := o.schedules[syncType]
	if !ok {
		return false
	}
	job.ticker.Stop()
	close(job.done)
	delete(o.schedules, syncType)
	return true
}

func (o *Orchestrator) Schedules() []models.ScheduleInfo {
	o.schedMu.RLock()
	defer o.schedMu.RUnlock()

	out := make([]models.ScheduleInfo, 0, len(o.schedules))
	for name, job := range o.schedules {
		out = append(out, models.ScheduleInfo{
			Name:            name,
			IntervalMinutes: job.interval.Minutes(),
			NextRun:         job.nextRun,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (o *Orchestrator) StopAllSchedules() {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()

	for name, job := range o.schedules {
		job.ticker.Stop()
		close(job.done)
		delete(o.schedules, name)
	}
}

func (o *Orchestrator) scheduleNames() []models.SyncType {
	infos := o.Schedules()
	names := make([]models.SyncType, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}
