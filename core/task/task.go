// Package task 提供资产下载任务的并发调度能力。
package task

import (
	"sync"
	"time"
)

// TaskStatus 任务状态。
type TaskStatus int

const (
	// TaskStatusPending 等待中。
	TaskStatusPending TaskStatus = iota
	// TaskStatusRunning 下载中。
	TaskStatusRunning
	// TaskStatusRetrying 等待重试。
	TaskStatusRetrying
	// TaskStatusCompleted 已完成。
	TaskStatusCompleted
	// TaskStatusExisting 目标文件已存在，未发起下载。
	TaskStatusExisting
	// TaskStatusFailed 重试耗尽后失败。
	TaskStatusFailed
	// TaskStatusCanceled 已取消。
	TaskStatusCanceled
)

// String 返回任务状态的字符串表示。
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "pending"
	case TaskStatusRunning:
		return "running"
	case TaskStatusRetrying:
		return "retrying"
	case TaskStatusCompleted:
		return "completed"
	case TaskStatusExisting:
		return "existing"
	case TaskStatusFailed:
		return "failed"
	case TaskStatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal 判断是否为终态。
func (s TaskStatus) Terminal() bool {
	return s >= TaskStatusCompleted
}

// Task 表示一个资产下载任务。
type Task struct {
	mu sync.RWMutex

	ID        string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	// 进度信息
	Progress int64 // 已写入字节数
	Total    int64 // 总字节数，未知时为 0
	Speed    int64 // 当前速度（字节/秒）
	Attempts int

	AssetID   string
	FileName  string
	LocalPath string

	Error error

	lastProgress int64
	lastTime     time.Time
}

// NewTask 创建新任务。
func NewTask(id, assetID string) *Task {
	now := time.Now()
	return &Task{
		ID:        id,
		AssetID:   assetID,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		lastTime:  now,
	}
}

// SetStatus 设置任务状态。
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = status
	t.UpdatedAt = time.Now()
}

// GetStatus 获取任务状态。
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// StartAttempt 进入新一轮下载，进度归零。
func (t *Task) StartAttempt(attempt int, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.Attempts = attempt
	t.Status = TaskStatusRunning
	t.Progress = 0
	t.Total = total
	t.lastProgress = 0
	t.lastTime = now
	t.UpdatedAt = now
}

// SetProgress 设置任务进度并计算速度。
func (t *Task) SetProgress(progress int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(t.lastTime).Seconds()
	if elapsed > 0 {
		t.Speed = int64(float64(progress-t.lastProgress) / elapsed)
	}

	t.Progress = progress
	t.lastProgress = progress
	t.lastTime = now
	t.UpdatedAt = now
}

// GetProgress 获取任务进度。
func (t *Task) GetProgress() (progress, total int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Progress, t.Total
}

// SetError 记录错误并置为失败。
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Error = err
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
}

// GetError 获取任务错误。
func (t *Task) GetError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// Clone 返回任务的副本（用于安全传递给回调）。
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &Task{
		ID:        t.ID,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Progress:  t.Progress,
		Total:     t.Total,
		Speed:     t.Speed,
		Attempts:  t.Attempts,
		AssetID:   t.AssetID,
		FileName:  t.FileName,
		LocalPath: t.LocalPath,
		Error:     t.Error,
	}
}

// ProgressCallback 任务状态变化回调。
type ProgressCallback func(task *Task)
