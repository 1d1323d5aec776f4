package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// syncRunner 调度器只依赖同步入口
type syncRunner interface {
	Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error)
}

// SyncScheduler 定时触发同步；每 fullEvery 次强制一次全量，用于补回水位线遗漏的乱序订单
type SyncScheduler struct {
	runner    syncRunner
	interval  time.Duration
	fullEvery int
	logger    *logrus.Logger
	runs      int
}

func NewSyncScheduler(runner syncRunner, interval time.Duration, fullEvery int, logger *logrus.Logger) *SyncScheduler {
	return &SyncScheduler{runner: runner, interval: interval, fullEvery: fullEvery, logger: logger}
}

// Start 阻塞运行直到 ctx 取消；interval<=0 时直接返回
func (s *SyncScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("定时同步未开启")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"interval":   s.interval.String(),
		"full_every": s.fullEvery,
	}).Info("定时同步已启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("定时同步已停止")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	s.runs++
	opts := SyncOptions{ForceFull: s.fullEvery > 0 && s.runs%s.fullEvery == 0}
	res, err := s.runner.Sync(ctx, opts)
	if err != nil {
		s.logger.WithError(err).WithField("run", s.runs).Warn("定时同步失败")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run":        s.runs,
		"force_full": opts.ForceFull,
		"inserted":   res.Inserted,
		"total":      res.TotalAfter,
	}).Debug("定时同步完成")
}
