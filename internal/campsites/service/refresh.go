package service

import (
	"context"
	"time"

	"basecamp/pkg/config"
)

// CalendarRefresher runs the calendar extension on a fixed interval so every
// campsite keeps roughly a year of bookable dates ahead of today.
type CalendarRefresher struct {
	calendar CalendarService
	cfg      *config.Config
	stop     chan struct{}
	done     chan struct{}
}

func NewCalendarRefresher(calendar CalendarService, cfg *config.Config) *CalendarRefresher {
	return &CalendarRefresher{
		calendar: calendar,
		cfg:      cfg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the refresh loop. One pass runs immediately so a fleet
// restarted after downtime catches up without waiting a full interval.
func (r *CalendarRefresher) Start(ctx context.Context) {
	go func() {
		defer close(r.done)

		r.runOnce(ctx)

		ticker := time.NewTicker(r.cfg.CalendarRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.runOnce(ctx)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *CalendarRefresher) runOnce(ctx context.Context) {
	r.cfg.Log.Debug("Calendar refresh started")
	if err := r.calendar.EnsureAllCalendars(ctx); err != nil {
		r.cfg.Log.Error("Calendar refresh failed", "error", err)
		return
	}
	r.cfg.Log.Debug("Calendar refresh completed")
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (r *CalendarRefresher) Stop() {
	close(r.stop)
	<-r.done
}
