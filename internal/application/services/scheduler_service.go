package services

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/task"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimerWorkers    = 2
	DefaultShutdownTimeout = 5 * time.Second
)

// SchedulerConfig holds configuration for the task scheduler
type SchedulerConfig struct {
	Workers         int
	TimerWorkers    int
	QueueLimit      int // 0 = unbounded
	Admission       task.AdmissionPolicy
	ShutdownTimeout time.Duration
}

// DefaultWorkers returns max(2, NumCPU/2).
func DefaultWorkers() int {
	return max(2, runtime.NumCPU()/2)
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers()
	}
	if c.TimerWorkers <= 0 {
		c.TimerWorkers = DefaultTimerWorkers
	}
	if c.QueueLimit < 0 {
		c.QueueLimit = 0
	}
	if !c.Admission.IsValid() {
		c.Admission = task.AdmissionBlock
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// schedulerRuntime is one generation of pools. A shutdown retires it; the next public
// call creates a fresh one.
type schedulerRuntime struct {
	ctx     context.Context
	cancel  context.CancelFunc
	workers *workerPool
	timers  *workerPool
	timerWG sync.WaitGroup
}

type schedulerService struct {
	host    ports.Host
	cfg     SchedulerConfig
	metrics ports.EngineMetrics
	logger  *logrus.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     task.State
	rt        *schedulerRuntime
	named     map[string]*task.Handle
	scheduled map[string]*task.Handle
}

// NewSchedulerService creates a new task scheduler bound to an authoritative host
func NewSchedulerService(host ports.Host, cfg SchedulerConfig, metrics ports.EngineMetrics, logger *logrus.Logger) ports.TaskScheduler {
	return &schedulerService{
		host:      host,
		cfg:       cfg.withDefaults(),
		metrics:   metricsOrNop(metrics),
		logger:    logger,
		now:       time.Now,
		state:     task.StateUninitialized,
		named:     make(map[string]*task.Handle),
		scheduled: make(map[string]*task.Handle),
	}
}

// Initialize creates the pools if they do not exist yet.
func (s *schedulerService) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureActiveLocked()
}

func (s *schedulerService) ensureActiveLocked() *schedulerRuntime {
	if s.rt != nil {
		return s.rt
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.rt = &schedulerRuntime{
		ctx:     ctx,
		cancel:  cancel,
		workers: newWorkerPool("workers", s.cfg.Workers, s.cfg.QueueLimit, s.cfg.Admission),
		timers:  newWorkerPool("timers", s.cfg.TimerWorkers, 0, task.AdmissionBlock),
	}
	s.state = task.StateActive

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"workers":       s.cfg.Workers,
			"timer_workers": s.cfg.TimerWorkers,
			"queue_limit":   s.cfg.QueueLimit,
			"admission":     s.cfg.Admission,
		}).Info("Task scheduler initialized")
	}
	return s.rt
}

func (s *schedulerService) Submit(fn task.Func) *task.Handle {
	s.mu.Lock()
	rt := s.ensureActiveLocked()
	h := task.NewHandle(rt.ctx, "", task.KindAsync, s.now())
	s.mu.Unlock()

	s.dispatch(rt, h, fn, rt.workers.enqueue)
	return h
}

// TrySubmit is Submit that never waits for queue room. A full queue rejects the task with
// ErrTaskRejected. Callers on the main context use it.
func (s *schedulerService) TrySubmit(fn task.Func) *task.Handle {
	s.mu.Lock()
	rt := s.ensureActiveLocked()
	h := task.NewHandle(rt.ctx, "", task.KindAsync, s.now())
	s.mu.Unlock()

	s.dispatch(rt, h, fn, rt.workers.tryEnqueue)
	return h
}

// SubmitNamed runs fn on a worker and tracks it under name until it completes.
// A newer submission under the same name replaces the tracking entry.
func (s *schedulerService) SubmitNamed(name string, fn task.Func) *task.Handle {
	s.mu.Lock()
	rt := s.ensureActiveLocked()
	h := task.NewHandle(rt.ctx, name, task.KindNamed, s.now())
	s.named[name] = h
	s.mu.Unlock()

	s.dispatch(rt, h, fn, rt.workers.enqueue)
	return h
}

func (s *schedulerService) dispatch(rt *schedulerRuntime, h *task.Handle, fn task.Func, admit func(poolJob) error) {
	kind := string(h.Kind())
	s.metrics.TaskSubmitted(kind)

	job := poolJob{handle: h, run: func() {
		defer s.untrack(h)
		defer h.Release()

		if h.IsDone() {
			return
		}
		if h.Context().Err() != nil {
			h.Finish(domain.ErrTaskCancelled)
			return
		}

		err := utils.RunSafely("task "+taskLabel(h), func() error {
			return fn(h.Context())
		})
		if err != nil {
			s.metrics.TaskFailed(kind)
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{
					"task": taskLabel(h),
					"kind": kind,
				}).WithError(err).Error("Task failed")
			}
		}
		h.Finish(err)
	}}

	if err := admit(job); err != nil {
		s.reject(h, err)
	}
}

func (s *schedulerService) reject(h *task.Handle, err error) {
	h.Finish(err)
	h.Release()
	s.untrack(h)
	s.metrics.TaskRejected(string(h.Kind()))

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"task": taskLabel(h),
			"kind": h.Kind(),
		}).WithError(err).Warn("Task rejected")
	}
}

// ScheduleOnce fires fn once after delay, subject to the connected-clients guard.
func (s *schedulerService) ScheduleOnce(name string, fn task.Func, delay time.Duration) *task.Handle {
	rt, h := s.startTimer(name, task.KindOneShot)
	s.metrics.TaskSubmitted(string(task.KindOneShot))

	go func() {
		defer rt.timerWG.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		var err error
		select {
		case <-h.Stopped():
		case <-rt.ctx.Done():
			err = domain.ErrTaskCancelled
		case <-timer.C:
			err = rt.timers.enqueue(poolJob{handle: h, run: func() { s.fireOnce(h, fn) }})
			if err == nil {
				return
			}
		}

		h.Finish(err)
		h.Release()
		s.untrack(h)
	}()

	return h
}

// ScheduleRepeating fires fn at a fixed rate until cancelled.
func (s *schedulerService) ScheduleRepeating(name string, fn task.Func, initialDelay, period time.Duration) *task.Handle {
	rt, h := s.startTimer(name, task.KindRepeating)
	s.metrics.TaskSubmitted(string(task.KindRepeating))
	if period <= 0 {
		period = time.Millisecond
	}

	go func() {
		defer rt.timerWG.Done()
		defer s.untrack(h)
		defer h.Release()
		defer h.Finish(domain.ErrTaskCancelled)

		timer := time.NewTimer(initialDelay)
		defer timer.Stop()

		select {
		case <-h.Stopped():
			return
		case <-rt.ctx.Done():
			return
		case <-timer.C:
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			if err := rt.timers.enqueue(poolJob{handle: h, run: func() { s.fireRepeating(h, fn) }}); err != nil {
				return
			}

			select {
			case <-h.Stopped():
				return
			case <-rt.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return h
}

// startTimer registers a scheduled handle. The timer goroutine is counted under the
// scheduler lock so a concurrent shutdown always waits for it.
func (s *schedulerService) startTimer(name string, kind task.Kind) (*schedulerRuntime, *task.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt := s.ensureActiveLocked()
	h := task.NewHandle(rt.ctx, name, kind, s.now())
	s.scheduled[name] = h
	rt.timerWG.Add(1)
	return rt, h
}

func (s *schedulerService) fireOnce(h *task.Handle, fn task.Func) {
	defer s.untrack(h)

	if h.IsStopped() {
		h.Release()
		return
	}
	if !s.guard(h.Name()) {
		s.metrics.ScheduledSkipped(h.Name())
		h.Finish(domain.ErrTaskSkipped)
		h.Release()
		return
	}

	complete := func() {
		h.Finish(s.runBody(h, fn))
		h.Release()
	}

	if !s.host.IsActive() {
		// Host gone: run inline on the timer worker.
		complete()
		return
	}

	if err := s.host.RunNow(complete); err != nil {
		s.logHandOffFailure(h, err)
		h.Finish(err)
		h.Release()
	}
}

func (s *schedulerService) fireRepeating(h *task.Handle, fn task.Func) {
	if h.IsStopped() {
		return
	}
	if !s.guard(h.Name()) {
		s.metrics.ScheduledSkipped(h.Name())
		return
	}

	if !s.host.IsActive() {
		if s.logger != nil {
			s.logger.WithField("task", h.Name()).Info("Host inactive, cancelling repeating task")
		}
		h.Cancel(false, domain.ErrHostInactive)
		return
	}

	if err := s.host.RunNow(func() { s.runBody(h, fn) }); err != nil {
		s.logHandOffFailure(h, err)
	}
}

// guard reports whether a scheduled firing may proceed.
func (s *schedulerService) guard(name string) bool {
	if task.IsSystemTask(name) {
		return true
	}
	return s.host.ConnectedClients() > 0
}

// runBody executes a scheduled body with panics contained.
func (s *schedulerService) runBody(h *task.Handle, fn task.Func) error {
	err := utils.RunSafely("scheduled task "+taskLabel(h), func() error {
		return fn(h.Context())
	})
	if err != nil {
		s.metrics.TaskFailed(string(h.Kind()))
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"task": h.Name(),
				"kind": h.Kind(),
			}).WithError(err).Error("Scheduled task failed")
		}
	}
	return err
}

func (s *schedulerService) logHandOffFailure(h *task.Handle, err error) {
	if s.logger != nil {
		s.logger.WithField("task", h.Name()).WithError(err).Warn("Failed to hand task to host")
	}
}

// Cancel stops a tracked scheduled or named task. A body already handed to the host
// is not interrupted.
func (s *schedulerService) Cancel(name string) bool {
	s.mu.Lock()
	scheduled := s.scheduled[name]
	named := s.named[name]
	delete(s.scheduled, name)
	delete(s.named, name)
	s.mu.Unlock()

	cancelled := false
	if scheduled != nil && scheduled.Cancel(true, domain.ErrTaskCancelled) {
		cancelled = true
	}
	if named != nil && named.Cancel(true, domain.ErrTaskCancelled) {
		cancelled = true
	}

	if cancelled && s.logger != nil {
		s.logger.WithField("task", name).Debug("Task cancelled")
	}
	return cancelled
}

func (s *schedulerService) RunOnMainContext(fn func()) bool {
	if !s.host.IsActive() {
		s.warnInactive("run on main context")
		return false
	}
	if err := s.host.RunNow(s.safeMain(fn)); err != nil {
		s.warnHandOff(err)
		return false
	}
	return true
}

func (s *schedulerService) RunOnMainContextAfter(ticks int64, fn func()) bool {
	if !s.host.IsActive() {
		s.warnInactive("run on main context later")
		return false
	}
	if err := s.host.RunAfterTicks(ticks, s.safeMain(fn)); err != nil {
		s.warnHandOff(err)
		return false
	}
	return true
}

func (s *schedulerService) safeMain(fn func()) func() {
	return func() {
		err := utils.RunSafely("main context task", func() error {
			fn()
			return nil
		})
		if err != nil && s.logger != nil {
			s.logger.WithError(err).Error("Main context task failed")
		}
	}
}

func (s *schedulerService) warnInactive(op string) {
	if s.logger != nil {
		s.logger.WithField("operation", op).Warn("Host inactive, task not scheduled")
	}
}

func (s *schedulerService) warnHandOff(err error) {
	if s.logger != nil {
		s.logger.WithError(err).Warn("Failed to hand task to host")
	}
}

// Shutdown cancels tracked work, drains the pools for up to the configured timeout,
// then forces termination. It is idempotent.
func (s *schedulerService) Shutdown() {
	s.mu.Lock()
	rt := s.rt
	if rt == nil {
		if s.state != task.StateUninitialized {
			s.state = task.StateShutdown
		}
		s.mu.Unlock()
		return
	}
	s.rt = nil
	s.state = task.StateShuttingDown
	scheduled, named := s.drainTrackedLocked()
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"scheduled": len(scheduled),
			"named":     len(named),
		}).Info("Shutting down task scheduler")
	}

	for _, h := range scheduled {
		h.Cancel(false, domain.ErrTaskCancelled)
	}
	for _, h := range named {
		h.Cancel(true, domain.ErrTaskCancelled)
	}

	deadline := time.Now().Add(s.cfg.ShutdownTimeout)
	rt.workers.close()
	rt.timers.close()
	graceful := rt.workers.awaitTermination(deadline) && rt.timers.awaitTermination(deadline)

	if !graceful {
		if s.logger != nil {
			s.logger.WithField("timeout", s.cfg.ShutdownTimeout).Warn("Task scheduler did not terminate in time, forcing shutdown")
		}
		s.terminate(rt)
	}

	rt.cancel()
	waitGroupUntil(&rt.timerWG, time.Now().Add(s.cfg.ShutdownTimeout))

	s.markShutdown()
	if s.logger != nil {
		s.logger.Info("Task scheduler shut down")
	}
}

// ForceShutdown cancels everything with interruption and terminates the pools without waiting.
func (s *schedulerService) ForceShutdown() {
	s.mu.Lock()
	rt := s.rt
	s.rt = nil
	if rt != nil {
		s.state = task.StateShuttingDown
	}
	scheduled, named := s.drainTrackedLocked()
	s.mu.Unlock()

	for _, h := range scheduled {
		h.Cancel(true, domain.ErrTaskCancelled)
	}
	for _, h := range named {
		h.Cancel(true, domain.ErrTaskCancelled)
	}

	if rt != nil {
		s.terminate(rt)
		if s.logger != nil {
			s.logger.Warn("Task scheduler force shut down")
		}
	}
	s.markShutdown()
}

// terminate interrupts running bodies and completes every job that never started.
func (s *schedulerService) terminate(rt *schedulerRuntime) {
	dropped := append(rt.workers.terminate(), rt.timers.terminate()...)
	rt.cancel()
	for _, job := range dropped {
		if job.handle != nil {
			job.handle.Finish(domain.ErrSchedulerTerminated)
			job.handle.Release()
		}
	}
	if len(dropped) > 0 && s.logger != nil {
		s.logger.WithField("dropped", len(dropped)).Warn("Queued tasks dropped on termination")
	}
}

func (s *schedulerService) markShutdown() {
	s.mu.Lock()
	if s.rt == nil && s.state != task.StateUninitialized {
		s.state = task.StateShutdown
	}
	s.mu.Unlock()
}

func (s *schedulerService) drainTrackedLocked() ([]*task.Handle, []*task.Handle) {
	scheduled := make([]*task.Handle, 0, len(s.scheduled))
	for _, h := range s.scheduled {
		scheduled = append(scheduled, h)
	}
	named := make([]*task.Handle, 0, len(s.named))
	for _, h := range s.named {
		named = append(named, h)
	}
	s.scheduled = make(map[string]*task.Handle)
	s.named = make(map[string]*task.Handle)
	return scheduled, named
}

// untrack removes h from its tracking map if the entry still points at it.
func (s *schedulerService) untrack(h *task.Handle) {
	if h.Name() == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.named
	if h.Kind().IsScheduled() {
		m = s.scheduled
	}
	if m[h.Name()] == h {
		delete(m, h.Name())
	}
}

func (s *schedulerService) State() task.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *schedulerService) IsShutdown() bool {
	return s.State() == task.StateShutdown
}

func (s *schedulerService) HasRunningTasks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.named)+len(s.scheduled) > 0
}

// TrackedTasks returns the tracked named and scheduled tasks ordered by name.
func (s *schedulerService) TrackedTasks() []task.Info {
	s.mu.Lock()
	infos := make([]task.Info, 0, len(s.named)+len(s.scheduled))
	for _, h := range s.scheduled {
		infos = append(infos, h.Info())
	}
	for _, h := range s.named {
		infos = append(infos, h.Info())
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name == infos[j].Name {
			return infos[i].Kind < infos[j].Kind
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

func taskLabel(h *task.Handle) string {
	if h.Name() != "" {
		return h.Name()
	}
	return h.ID().String()
}

func waitGroupUntil(wg *sync.WaitGroup, deadline time.Time) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
