package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"OptInSync/internal/adapter/source"
	"OptInSync/internal/config"
	"OptInSync/internal/interfaces"
	"OptInSync/internal/metrics"
	"OptInSync/internal/model"

	"github.com/sirupsen/logrus"
)

var (
	// ErrMissingCredentials 订单源地址或 API Key 未配置
	ErrMissingCredentials = errors.New("订单源凭据未配置")
	// ErrMaxRetriesExceeded 可重试错误连续出现，超过最大重试次数
	ErrMaxRetriesExceeded = errors.New("超过最大重试次数")
)

const releaseTimeout = 5 * time.Second

// SyncOptions 同步选项
type SyncOptions struct {
	ForceFull            bool // 忽略水位线，强制全量
	TriggerRemoteRefresh bool // 全量拉取前要求源系统刷新缓存
}

// SyncResult 单次同步结果
type SyncResult struct {
	Success        bool  `json:"success"`
	Inserted       int   `json:"inserted"`
	Errors         int   `json:"errors"`
	TotalAfter     int64 `json:"total_after"`
	RemoteCount    int   `json:"remote_count"`
	Retryable      bool  `json:"retryable"`
	WasIncremental bool  `json:"was_incremental"`
	Attempts       int   `json:"attempts"`
	Filtered       int   `json:"filtered,omitempty"` // 客户端按水位线过滤掉的记录数
}

// SyncStatus 对外展示的同步状态
type SyncStatus struct {
	State          SyncState   `json:"state"`
	Attempt        int         `json:"attempt"`
	MaxRetries     int         `json:"max_retries"`
	NextRetryAt    *time.Time  `json:"next_retry_at,omitempty"`
	RetryInSeconds int         `json:"retry_in_seconds,omitempty"`
	LastRunAt      *time.Time  `json:"last_run_at,omitempty"`
	LastResult     *SyncResult `json:"last_result,omitempty"`
	LastError      string      `json:"last_error,omitempty"`
}

// SyncCoordinator 订单同步：加锁 → 拉取 → 地理校验 → 分批写入，临时性失败按指数退避重试
type SyncCoordinator struct {
	fetcher    interfaces.OrderFetcher
	store      interfaces.OrderStore
	lock       interfaces.SyncLock
	sourceCfg  config.SourceConfig
	lockTTL    time.Duration
	maxRetries int
	backoff    Backoff
	metrics    *metrics.SyncMetrics
	logger     *logrus.Logger

	// 计时与随机数可替换，便于测试
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
	now   func() time.Time

	mu     sync.Mutex
	status SyncStatus
}

func NewSyncCoordinator(
	fetcher interfaces.OrderFetcher,
	store interfaces.OrderStore,
	lock interfaces.SyncLock,
	cfg *config.Config,
	m *metrics.SyncMetrics,
	logger *logrus.Logger,
) *SyncCoordinator {
	backoff := Backoff{Base: cfg.Sync.BaseDelay, Cap: cfg.Sync.MaxDelay, Jitter: cfg.Sync.Jitter}
	if backoff.Base <= 0 {
		backoff = DefaultBackoff()
	}
	ttl := cfg.Sync.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxRetries := cfg.Sync.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &SyncCoordinator{
		fetcher:    fetcher,
		store:      store,
		lock:       lock,
		sourceCfg:  cfg.Source,
		lockTTL:    ttl,
		maxRetries: maxRetries,
		backoff:    backoff,
		metrics:    m,
		logger:     logger,
		sleep:      sleepContext,
		rand:       rand.Float64,
		now:        time.Now,
		status:     SyncStatus{State: StateIdle, MaxRetries: maxRetries},
	}
}

// Sync 执行一次同步。另一进程持有锁时直接返回成功且新增为 0；锁在任何退出路径上释放。
func (c *SyncCoordinator) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	start := c.now()
	log := c.logger.WithFields(logrus.Fields{
		"force_full": opts.ForceFull,
		"refresh":    opts.TriggerRemoteRefresh,
	})

	if strings.TrimSpace(c.sourceCfg.BaseURL) == "" || strings.TrimSpace(c.sourceCfg.APIKey) == "" {
		c.finish(EventFatalFailure, 0, nil, ErrMissingCredentials)
		c.metrics.ObserveRun(metrics.OutcomeMissingCredentials, c.now().Sub(start))
		log.Error("订单源凭据未配置，跳过同步")
		return &SyncResult{}, ErrMissingCredentials
	}

	token, acquired, err := c.lock.TryAcquire(ctx, c.lockTTL)
	if err != nil {
		c.finish(EventFatalFailure, 0, nil, err)
		c.metrics.ObserveRun(metrics.OutcomeFatal, c.now().Sub(start))
		return &SyncResult{}, fmt.Errorf("获取同步锁失败: %w", err)
	}
	if !acquired {
		return c.lockedOut(ctx, start)
	}
	defer c.release(ctx, token)

	c.transition(EventStart, 0)
	attempt := 0
	for {
		res, err := c.runOnce(ctx, opts)
		if err == nil {
			res.Attempts = attempt + 1
			c.finish(EventSucceeded, res.Attempts, res, nil)
			c.metrics.AddRecords(metrics.RecordInserted, res.Inserted)
			c.metrics.AddRecords(metrics.RecordErrored, res.Errors)
			c.metrics.AddRecords(metrics.RecordFiltered, res.Filtered)
			c.metrics.SetOrdersTotal(res.TotalAfter)
			c.metrics.ObserveRun(metrics.OutcomeSuccess, c.now().Sub(start))
			log.WithFields(logrus.Fields{
				"inserted":    res.Inserted,
				"errors":      res.Errors,
				"total_after": res.TotalAfter,
				"incremental": res.WasIncremental,
				"attempts":    res.Attempts,
			}).Info("订单同步完成")
			return res, nil
		}

		if ctx.Err() != nil {
			return c.cancelled(ctx, start, attempt+1)
		}

		if !source.IsRetryable(err) {
			res := &SyncResult{Attempts: attempt + 1}
			c.finish(EventFatalFailure, res.Attempts, res, err)
			c.metrics.ObserveRun(metrics.OutcomeFatal, c.now().Sub(start))
			log.WithError(err).Error("订单同步失败（不可重试）")
			return res, err
		}

		attempt++
		if NextState(StateSyncing, EventRetryableFailure, attempt, c.maxRetries) == StateError {
			res := &SyncResult{Retryable: true, Attempts: attempt}
			err = fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
			c.finish(EventRetryableFailure, attempt, res, err)
			c.metrics.ObserveRun(metrics.OutcomeMaxRetries, c.now().Sub(start))
			log.WithError(err).WithField("attempts", attempt).Error("订单同步重试次数耗尽")
			return res, err
		}

		delay := c.backoff.Jittered(attempt-1, c.rand())
		c.scheduleRetry(attempt, delay, err)
		c.metrics.IncRetry()
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warn("订单同步临时失败，等待重试")

		if err := c.sleep(ctx, delay); err != nil {
			return c.cancelled(ctx, start, attempt)
		}
		c.transition(EventRetryDue, attempt)
	}
}

// runOnce 单次尝试：确定拉取模式、拉取、过滤、转换、写入
func (c *SyncCoordinator) runOnce(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	watermark, err := c.store.HighestExternalID(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询水位线失败: %w", err)
	}

	incremental := watermark != "" && !opts.ForceFull
	req := interfaces.FetchRequest{Mode: interfaces.FetchFull, Refresh: opts.TriggerRemoteRefresh}
	if incremental {
		req = interfaces.FetchRequest{Mode: interfaces.FetchIncremental, Watermark: watermark}
	}

	fetched, err := c.fetcher.Fetch(ctx, req)
	clientFilter := false
	if err != nil && incremental && source.IsKind(err, source.KindWatermarkUnsupported) {
		c.logger.WithField("watermark", watermark).Warn("源系统不支持增量拉取，回退为全量拉取并在本地按水位线过滤")
		fetched, err = c.fetcher.Fetch(ctx, interfaces.FetchRequest{Mode: interfaces.FetchFull})
		clientFilter = true
	}
	if err != nil {
		return nil, err
	}

	records := fetched.Records
	filtered := 0
	if clientFilter {
		records, filtered = filterAfterWatermark(records, watermark)
		if filtered > 0 {
			// 源系统的 id 若不随到达顺序单调递增，晚到的旧 id 订单会在这里被丢弃，直到下一次全量同步
			c.logger.WithFields(logrus.Fields{
				"watermark": watermark,
				"dropped":   filtered,
				"kept":      len(records),
			}).Warn("本地水位线过滤丢弃了记录，晚到的乱序订单需等待下一次全量同步")
		}
	}

	now := c.now().UTC()
	orders := make([]*model.Order, 0, len(records))
	skipped := 0
	for i := range records {
		o, err := buildOrder(&records[i], now)
		if err != nil {
			skipped++
			c.logger.WithError(err).WithField("index", i).Warn("订单记录无法转换，跳过")
			continue
		}
		orders = append(orders, o)
	}

	upserted := c.store.Upsert(ctx, orders)
	total, err := c.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计订单总数失败: %w", err)
	}

	return &SyncResult{
		Success:        true,
		Inserted:       upserted.Inserted,
		Errors:         upserted.Errors + skipped,
		TotalAfter:     total,
		RemoteCount:    fetched.TotalRemoteCount,
		WasIncremental: incremental,
		Filtered:       filtered,
	}, nil
}

// lockedOut 其他进程正在同步：不访问源系统，只刷新本地总数
func (c *SyncCoordinator) lockedOut(ctx context.Context, start time.Time) (*SyncResult, error) {
	total, err := c.store.Count(ctx)
	if err != nil {
		return &SyncResult{}, fmt.Errorf("统计订单总数失败: %w", err)
	}
	c.transition(EventLockBusy, 0)
	c.metrics.ObserveRun(metrics.OutcomeLockedOut, c.now().Sub(start))
	c.logger.Info("同步锁被占用，跳过本次同步")
	return &SyncResult{Success: true, TotalAfter: total}, nil
}

func (c *SyncCoordinator) cancelled(ctx context.Context, start time.Time, attempts int) (*SyncResult, error) {
	c.transition(EventCancelled, attempts)
	c.metrics.ObserveRun(metrics.OutcomeCancelled, c.now().Sub(start))
	c.logger.WithError(ctx.Err()).Warn("订单同步已取消，已写入的批次保留")
	return &SyncResult{Attempts: attempts}, ctx.Err()
}

// release 调用方取消后仍需释放锁
func (c *SyncCoordinator) release(ctx context.Context, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := c.lock.Release(releaseCtx, token); err != nil {
		c.logger.WithError(err).Warn("释放同步锁失败，将等待锁超时")
	}
}

func (c *SyncCoordinator) transition(event SyncEvent, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = NextState(c.status.State, event, attempt, c.maxRetries)
	c.status.Attempt = attempt
	if event == EventStart {
		c.status.NextRetryAt = nil
		c.status.LastError = ""
	}
	if event == EventRetryDue || event == EventCancelled {
		c.status.NextRetryAt = nil
	}
}

func (c *SyncCoordinator) scheduleRetry(attempt int, delay time.Duration, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = NextState(c.status.State, EventRetryableFailure, attempt, c.maxRetries)
	c.status.Attempt = attempt
	next := c.now().Add(delay)
	c.status.NextRetryAt = &next
	c.status.LastError = cause.Error()
}

// finish 记录一次运行的终态
func (c *SyncCoordinator) finish(event SyncEvent, attempt int, res *SyncResult, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = NextState(c.status.State, event, attempt, c.maxRetries)
	c.status.Attempt = attempt
	c.status.NextRetryAt = nil
	now := c.now()
	c.status.LastRunAt = &now
	if res != nil {
		c.status.LastResult = res
	}
	c.status.LastError = ""
	if cause != nil {
		c.status.LastError = cause.Error()
	}
}

// Status 当前同步状态（含重试倒计时）
func (c *SyncCoordinator) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.status
	if st.NextRetryAt != nil {
		remaining := st.NextRetryAt.Sub(c.now()).Seconds()
		st.RetryInSeconds = int(math.Max(0, math.Ceil(remaining)))
	}
	return st
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// filterAfterWatermark 只保留 id 数值大于水位线的记录；非数字 id 无法比较，予以保留
func filterAfterWatermark(records []model.RawOrder, watermark string) ([]model.RawOrder, int) {
	kept := make([]model.RawOrder, 0, len(records))
	dropped := 0
	for _, r := range records {
		if greaterID(r.Key(), watermark) {
			kept = append(kept, r)
			continue
		}
		dropped++
	}
	return kept, dropped
}

// greaterID 数字字符串按数值比较（去前导零后先比长度再比字典序）
func greaterID(id, watermark string) bool {
	a, okA := normalizeNumericID(id)
	b, okB := normalizeNumericID(watermark)
	if !okA || !okB {
		return true
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

func normalizeNumericID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return s, true
}
