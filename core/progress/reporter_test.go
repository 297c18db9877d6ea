package progress

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureLogger struct {
	mu    sync.Mutex
	infos []string
}

func (l *captureLogger) Debugf(string, ...any) {}
func (l *captureLogger) Warnf(string, ...any)  {}
func (l *captureLogger) Errorf(string, ...any) {}
func (l *captureLogger) Infof(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *captureLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.infos {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

func TestReporterCounts(t *testing.T) {
	logger := &captureLogger{}
	r := NewReporter(Options{Logger: logger})
	r.Start()
	r.PageFetched(100)
	r.PageFetched(20)
	for i := 0; i < 48; i++ {
		r.FileScheduled()
		r.Downloaded(10)
	}
	r.FileScheduled()
	r.Existing()
	r.FileScheduled()
	r.Failed()
	r.Stop()
	r.Stop()

	s := r.Snapshot()
	assert.Equal(t, int64(2), s.Pages)
	assert.Equal(t, int64(120), s.Items)
	assert.Equal(t, int64(50), s.Completed())
	assert.Equal(t, int64(480), s.Bytes)
	assert.True(t, logger.contains("已完成 50 个下载"), "每 50 个下载应记录一次")
	assert.True(t, logger.contains("结束"), "停止时应输出最终状态")
}

func TestReporterPeriodic(t *testing.T) {
	logger := &captureLogger{}
	r := NewReporter(Options{Interval: 5 * time.Millisecond, Logger: logger})
	r.Start()
	r.PageFetched(1)
	assert.Eventually(t, func() bool { return logger.contains("进度") }, time.Second, 5*time.Millisecond)
	r.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	r := NewReporter(Options{})
	r.Stop()
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "2.0 MiB", FormatBytes(2<<20))
	assert.Equal(t, "1m 5s", FormatDuration(65*time.Second))
}
