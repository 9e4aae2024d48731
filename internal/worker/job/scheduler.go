package job

import (
	"context"
	"sync"
	"time"

	"dex-sentinel/internal/worker/monitor"

	"go.uber.org/zap"
)

// JobFunc 定义作业执行函数
type JobFunc func(ctx context.Context) error

// JobOption 作业可选参数
type JobOption func(*ScheduledJob)

// WithTimeout 单次执行超时，默认 interval 的一半
func WithTimeout(d time.Duration) JobOption {
	return func(j *ScheduledJob) {
		if d > 0 {
			j.timeout = d
		}
	}
}

// Scheduler 作业调度器
type Scheduler struct {
	jobs    map[string]*ScheduledJob
	order   []string
	running bool
	mu      sync.Mutex
	logger  *zap.Logger
}

// ScheduledJob 表示一个调度的作业
type ScheduledJob struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       JobFunc
	stopCh   chan struct{}
	done     sync.WaitGroup
	once     bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler 创建调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*ScheduledJob),
		logger: logger,
	}
}

func (s *Scheduler) add(job *ScheduledJob) {
	if _, exists := s.jobs[job.name]; !exists {
		s.order = append(s.order, job.name)
	}
	s.jobs[job.name] = job
}

// RegisterJob 注册周期作业，启动后立即执行一次
func (s *Scheduler) RegisterJob(name string, interval time.Duration, fn JobFunc, opts ...JobOption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &ScheduledJob{
		name:     name,
		interval: interval,
		timeout:  interval / 2,
		fn:       fn,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(job)
	}
	s.add(job)

	s.logger.Info("job registered",
		zap.String("job", name),
		zap.Duration("interval", interval),
		zap.Duration("timeout", job.timeout))
}

// RegisterOnceJob 注册只运行一次的作业
func (s *Scheduler) RegisterOnceJob(name string, fn JobFunc, opts ...JobOption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &ScheduledJob{
		name:   name,
		fn:     fn,
		stopCh: make(chan struct{}),
		once:   true,
	}
	for _, opt := range opts {
		opt(job)
	}
	s.add(job)

	s.logger.Info("job registered", zap.String("job", name), zap.Bool("once", true))
}

// Start 先按注册顺序依次执行单次作业，全部结束后再启动周期作业，重复调用无效
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	var once, periodic []*ScheduledJob
	for _, name := range s.order {
		j := s.jobs[name]
		j.done.Add(1)
		if j.once {
			once = append(once, j)
		} else {
			periodic = append(periodic, j)
		}
	}
	go s.launch(ctx, once, periodic)
}

func (s *Scheduler) launch(ctx context.Context, once, periodic []*ScheduledJob) {
	for _, j := range once {
		if !j.stopped() && ctx.Err() == nil {
			s.executeJob(ctx, j)
		}
		j.done.Done()
	}
	for _, j := range periodic {
		go func() {
			defer j.done.Done()
			s.runJob(ctx, j)
		}()
	}
}

// Stop 停止调度器，正在执行的作业会被取消
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	jobs := make([]*ScheduledJob, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		j.halt()
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler stopping", zap.Int("jobs", len(jobs)))

	drained := make(chan struct{})
	go func() {
		for _, j := range jobs {
			j.done.Wait()
		}
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, jobs still running", zap.Error(ctx.Err()))
	}
}

func (j *ScheduledJob) stopped() bool {
	select {
	case <-j.stopCh:
		return true
	default:
		return false
	}
}

// halt 取消当前执行并通知循环退出
func (j *ScheduledJob) halt() {
	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Unlock()
	close(j.stopCh)
}

// runJob 上一次执行结束后才会开始计时下一次
func (s *Scheduler) runJob(ctx context.Context, job *ScheduledJob) {
	if job.stopped() || ctx.Err() != nil {
		return
	}
	s.executeJob(ctx, job)

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()
	for {
		select {
		case <-job.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.executeJob(ctx, job)
		}
	}
}

func (s *Scheduler) jobContext(ctx context.Context, job *ScheduledJob) (context.Context, context.CancelFunc) {
	if job.timeout > 0 {
		return context.WithTimeout(ctx, job.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Scheduler) executeJob(ctx context.Context, job *ScheduledJob) {
	jobCtx, cancel := s.jobContext(ctx, job)
	job.mu.Lock()
	job.cancel = cancel
	job.mu.Unlock()
	defer cancel()

	began := time.Now()
	err := job.fn(jobCtx)
	elapsed := time.Since(began)
	if err != nil {
		monitor.JobRuns.WithLabelValues(job.name, "error").Inc()
		s.logger.Error("job run failed", zap.String("job", job.name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	monitor.JobRuns.WithLabelValues(job.name, "ok").Inc()
	s.logger.Debug("job run finished", zap.String("job", job.name), zap.Duration("elapsed", elapsed))
}
