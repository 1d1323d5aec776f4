package service

import (
	"math"
	"time"
)

// SyncState 同步状态
type SyncState string

const (
	StateIdle      SyncState = "idle"       // 尚未运行或已取消
	StateSyncing   SyncState = "syncing"    // 正在拉取/写入
	StateRetrying  SyncState = "retrying"   // 临时性失败，等待下一次重试
	StateOnline    SyncState = "online"     // 最近一次同步成功
	StateError     SyncState = "error"      // 致命错误或重试次数耗尽
	StateLockedOut SyncState = "locked_out" // 其他进程持有同步锁
)

// SyncEvent 状态迁移事件
type SyncEvent string

const (
	EventStart            SyncEvent = "start"
	EventLockBusy         SyncEvent = "lock_busy"
	EventSucceeded        SyncEvent = "succeeded"
	EventRetryableFailure SyncEvent = "retryable_failure"
	EventFatalFailure     SyncEvent = "fatal_failure"
	EventRetryDue         SyncEvent = "retry_due"
	EventCancelled        SyncEvent = "cancelled"
)

// active 本进程内是否有同步正在进行
func (s SyncState) active() bool {
	return s == StateSyncing || s == StateRetrying
}

// NextState 纯状态迁移函数。attempt 为本次运行累计的可重试失败次数（含当前这次），
// 不超过 maxRetries 时进入 retrying，否则进入 error。未定义的组合保持原状态。
func NextState(state SyncState, event SyncEvent, attempt, maxRetries int) SyncState {
	switch event {
	case EventStart:
		return StateSyncing
	case EventLockBusy:
		if state.active() {
			return state
		}
		return StateLockedOut
	case EventSucceeded:
		if state == StateSyncing {
			return StateOnline
		}
	case EventRetryableFailure:
		if state == StateSyncing {
			if attempt <= maxRetries {
				return StateRetrying
			}
			return StateError
		}
	case EventFatalFailure:
		return StateError
	case EventRetryDue:
		if state == StateRetrying {
			return StateSyncing
		}
	case EventCancelled:
		if state.active() {
			return StateIdle
		}
	}
	return state
}

// Backoff 指数退避：Delay(n) = min(Base·2ⁿ, Cap)
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter float64 // 0.2 表示 ±20%
}

// DefaultBackoff 2s 起步，上限 60s，±20% 抖动
func DefaultBackoff() Backoff {
	return Backoff{Base: 2 * time.Second, Cap: 60 * time.Second, Jitter: 0.2}
}

// Delay 第 n 次重试（从 0 开始）前的等待时间
func (b Backoff) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if b.Base <= 0 {
		return 0
	}
	d := float64(b.Base) * math.Pow(2, float64(n))
	if b.Cap > 0 && d >= float64(b.Cap) {
		return b.Cap
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Jittered 在 Delay(n) 基础上按 r∈[0,1) 施加抖动：r=0.5 时无抖动
func (b Backoff) Jittered(n int, r float64) time.Duration {
	d := b.Delay(n)
	if b.Jitter <= 0 {
		return d
	}
	factor := 1 + b.Jitter*(2*r-1)
	return time.Duration(float64(d) * factor)
}
