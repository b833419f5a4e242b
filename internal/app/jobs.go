package app

import (
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const auditRetention = 365 * 24 * time.Hour

const (
	JobEvictIdleCarts = "evict_idle_carts"
	JobPurgeAuditLog  = "purge_audit_log"
)

var ErrUnknownJob = errors.New("unknown job")

// JobInfo describes a periodic job; Next and Prev are zero until the scheduler runs
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type job struct {
	name string
	spec string
	run  func()
}

func (a *Application) jobTable() []job {
	return []job{
		{name: JobEvictIdleCarts, spec: "@every 10m", run: a.SchedEvictIdleCarts},
		{name: JobPurgeAuditLog, spec: "@daily", run: a.SchedPurgeAuditLog},
	}
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	a.jobIDs = make(map[string]cron.EntryID)
	for _, j := range a.jobTable() {
		id, err := a.sched.AddFunc(j.spec, j.run)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
			continue
		}
		a.jobIDs[j.name] = id
	}

	a.sched.Start()
}

// Jobs lists the periodic jobs with their schedule
func (a *Application) Jobs() []JobInfo {
	table := a.jobTable()
	out := make([]JobInfo, 0, len(table))
	for _, j := range table {
		info := JobInfo{Name: j.name, Spec: j.spec}
		if id, ok := a.jobIDs[j.name]; ok && a.sched != nil {
			e := a.sched.Entry(id)
			info.Next, info.Prev = e.Next, e.Prev
		}
		out = append(out, info)
	}
	return out
}

// RunJobNow runs a periodic job immediately in the calling goroutine
func (a *Application) RunJobNow(name string) error {
	for _, j := range a.jobTable() {
		if j.name == name {
			zap.L().Info("run job now", zap.String("job", name))
			j.run()
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownJob, "%q", name)
}

// SchedEvictIdleCarts drops carts of sessions idle longer than order.cart_idle_ttl
func (a *Application) SchedEvictIdleCarts() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ttl := time.Duration(a.appConfig.Order.CartIdleTTL) * time.Second
	if ttl <= 0 {
		return
	}
	if n := a.carts.EvictIdle(ttl); n > 0 {
		zap.L().Info("evicted idle carts", zap.Int("count", n))
	}
}

// SchedPurgeAuditLog removes audit rows older than a year
func (a *Application) SchedPurgeAuditLog() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	n, err := a.auditor.PurgeOlderThan(auditRetention)
	if err != nil {
		zap.L().Error("purge audit log failed", zap.Error(err))
		return
	}
	zap.L().Info("purged audit log", zap.Int64("rows", n))
}
