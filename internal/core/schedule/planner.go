package schedule

import (
	"fmt"
	"time"

	"github.com/reugn/go-quartz/quartz"
)

type Job string

const (
	JOB_CONSUMPTION_COMMIT Job = "consumption_commit"
	JOB_FORECAST           Job = "forecast"
	JOB_DAY_ROLLOVER       Job = "day_rollover"
)

const (
	CRON_HALF_HOUR    = "0 0/30 * * * *"
	CRON_HOURLY       = "0 0 * * * *"
	CRON_EVERY_3_HOUR = "0 0 0/3 * * *"
	CRON_MIDNIGHT     = "0 0 0 * * *"
)

// Due is a job whose boundary has been reached. Slot is the latest boundary at or before now.
type Due struct {
	Job  Job
	Slot time.Time
}

type Options struct {
	Location        *time.Location
	CommitCron      string
	FirstForecast   string
	ForecastCron    string
	DayRolloverCron string
}

func DefaultOptions(loc *time.Location) Options {
	return Options{
		Location:        loc,
		CommitCron:      CRON_HALF_HOUR,
		FirstForecast:   CRON_HOURLY,
		ForecastCron:    CRON_EVERY_3_HOUR,
		DayRolloverCron: CRON_MIDNIGHT,
	}
}

type entry struct {
	job     Job
	first   *quartz.CronTrigger
	trigger *quartz.CronTrigger
	next    time.Time
	last    time.Time
}

// Planner tracks the next boundary of each job. Each boundary is reported once, so a job cannot run
// twice for the same slot however often Due is polled.
type Planner struct {
	loc     *time.Location
	entries []*entry
}

func NewPlanner(opts Options, now time.Time) (*Planner, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	p := &Planner{loc: opts.Location}
	specs := []struct {
		job   Job
		first string
		cron  string
	}{
		{JOB_CONSUMPTION_COMMIT, "", opts.CommitCron},
		{JOB_FORECAST, opts.FirstForecast, opts.ForecastCron},
		{JOB_DAY_ROLLOVER, "", opts.DayRolloverCron},
	}
	for _, s := range specs {
		trigger, err := quartz.NewCronTriggerWithLoc(s.cron, opts.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression for %s: %w", s.job, err)
		}
		e := &entry{job: s.job, trigger: trigger}
		if s.first != "" {
			first, err := quartz.NewCronTriggerWithLoc(s.first, opts.Location)
			if err != nil {
				return nil, fmt.Errorf("invalid cron expression for first %s: %w", s.job, err)
			}
			e.first = first
		}
		start := e.trigger
		if e.first != nil {
			start = e.first
		}
		next, err := nextAfter(start, now)
		if err != nil {
			return nil, err
		}
		e.next = next
		p.entries = append(p.entries, e)
	}
	return p, nil
}

// Due returns the jobs whose next boundary is at or before now and advances them past now.
func (p *Planner) Due(now time.Time) ([]Due, error) {
	var due []Due
	for _, e := range p.entries {
		if now.Before(e.next) {
			continue
		}
		slot := e.next
		next, err := nextAfter(e.trigger, slot)
		if err != nil {
			return due, err
		}
		// missed boundaries collapse into the latest one
		for !now.Before(next) {
			slot = next
			if next, err = nextAfter(e.trigger, slot); err != nil {
				return due, err
			}
		}
		e.next = next
		if slot.Equal(e.last) {
			continue
		}
		e.last = slot
		due = append(due, Due{Job: e.job, Slot: slot.In(p.loc)})
	}
	return due, nil
}

// Next returns the next boundary of a job.
func (p *Planner) Next(job Job) (time.Time, bool) {
	for _, e := range p.entries {
		if e.job == job {
			return e.next.In(p.loc), true
		}
	}
	return time.Time{}, false
}

// Last returns the last processed boundary of a job.
func (p *Planner) Last(job Job) (time.Time, bool) {
	for _, e := range p.entries {
		if e.job == job && !e.last.IsZero() {
			return e.last.In(p.loc), true
		}
	}
	return time.Time{}, false
}

// nextAfter returns the first fire time strictly after t.
func nextAfter(trigger *quartz.CronTrigger, t time.Time) (time.Time, error) {
	prev := t
	for i := 0; i < 2; i++ {
		ns, err := trigger.NextFireTime(prev.UnixNano())
		if err != nil {
			return time.Time{}, err
		}
		next := time.Unix(0, ns)
		if next.After(t) {
			return next, nil
		}
		prev = t.Add(time.Second)
	}
	return time.Time{}, fmt.Errorf("cron trigger %s does not advance after %v", trigger.Description(), t)
}
