package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dnslin/ocm-export/core/crypto"
	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/model"
	"github.com/dnslin/ocm-export/core/store"
)

// partSuffix 下载中的临时文件后缀。
const partSuffix = ".part"

// ErrGaveUp 重试耗尽。
var ErrGaveUp = errors.New("task: 重试耗尽，放弃下载")

// Destination 计算资产的本地保存路径，未知文件夹落在根目录下。
// 结果总是位于 filesDir 之内，越界的文件夹路径会回退到根目录。
func Destination(filesDir string, asset model.AssetRecord, index PathIndex) string {
	dir := filesDir
	if index != nil {
		if rel, ok := index.Path(asset.FolderID); ok && rel != "" {
			if joined := filepath.Join(filesDir, rel); within(filesDir, joined) {
				dir = joined
			}
		}
	}
	return filepath.Join(dir, FileName(asset))
}

func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// runDownload 执行单个资产下载，失败只体现在返回结果中，不会向上传播。
func (c *Coordinator) runDownload(ctx context.Context, task *Task, asset model.AssetRecord, index PathIndex) model.DownloadOutcome {
	dest := Destination(c.filesDir, asset, index)
	task.FileName = filepath.Base(dest)
	task.LocalPath = dest
	outcome := model.DownloadOutcome{AssetID: asset.ID, LocalPath: dest}

	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		c.logger.Debugf("跳过已存在文件 %s", dest)
		outcome.Success = true
		outcome.Existing = true
		outcome.Bytes = info.Size()
		c.record(asset, outcome)
		task.SetProgress(info.Size())
		task.SetStatus(TaskStatusExisting)
		c.notifyProgress(task)
		return outcome
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return c.fail(task, outcome, fmt.Errorf("task: 创建目录失败: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return c.cancel(task, outcome, err)
		}
		outcome.Attempts = attempt + 1
		c.logger.Infof("下载 %s -> %s（第 %d 次）", asset.ID, dest, attempt+1)
		n, sum, err := c.fetchOnce(ctx, task, asset.ID, dest, attempt+1)
		if err == nil {
			outcome.Success = true
			outcome.Bytes = n
			outcome.MD5 = sum
			c.record(asset, outcome)
			task.SetStatus(TaskStatusCompleted)
			c.notifyProgress(task)
			return outcome
		}
		if ctx.Err() != nil {
			return c.cancel(task, outcome, ctx.Err())
		}
		lastErr = err
		c.logger.Warnf("下载 %s 失败: %v", asset.ID, err)
		if httpclient.StatusOf(err) == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		if attempt+1 >= c.retry.MaxAttempts {
			break
		}
		task.SetStatus(TaskStatusRetrying)
		c.notifyProgress(task)
		if err := httpclient.Sleep(ctx, httpclient.Backoff(c.retry.BaseDelay, c.retry.MaxDelay, attempt)); err != nil {
			return c.cancel(task, outcome, err)
		}
	}

	c.logger.Errorf("资产 %s 在 %d 次尝试后放弃: %v", asset.ID, outcome.Attempts, lastErr)
	return c.fail(task, outcome, fmt.Errorf("%w: %s: %v", ErrGaveUp, asset.ID, lastErr))
}

// fetchOnce 将内容流写入 .part 临时文件，成功后重命名为目标文件；失败时删除临时文件。
func (c *Coordinator) fetchOnce(ctx context.Context, task *Task, assetID, dest string, attempt int) (int64, string, error) {
	body, size, err := c.fetcher.OpenNative(ctx, assetID)
	if err != nil {
		return 0, "", err
	}
	defer body.Close()
	task.StartAttempt(attempt, size)
	c.notifyProgress(task)

	part := dest + partSuffix
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("task: 创建临时文件失败: %w", err)
	}
	digest := crypto.NewDigest()
	n, copyErr := io.CopyBuffer(&progressWriter{w: io.MultiWriter(f, digest), task: task}, body, make([]byte, c.chunkSize))
	if copyErr == nil {
		copyErr = f.Sync()
	}
	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && size > 0 && n != size {
		copyErr = fmt.Errorf("task: 内容长度不匹配，期望 %d 实际 %d", size, n)
	}
	if copyErr != nil {
		os.Remove(part)
		return n, "", copyErr
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return n, "", fmt.Errorf("task: 重命名失败: %w", err)
	}
	return n, digest.Sum(), nil
}

func (c *Coordinator) record(asset model.AssetRecord, outcome model.DownloadOutcome) {
	if c.sink == nil {
		return
	}
	raw, err := asset.MarshalJSON()
	if err != nil {
		c.logger.Errorf("序列化资产 %s 失败: %v", asset.ID, err)
		return
	}
	entry := store.AssetEntry{
		RunID:      c.runID,
		AssetID:    asset.ID,
		LocalPath:  outcome.LocalPath,
		ExportedAt: c.now().UTC(),
		Existing:   outcome.Existing,
		Bytes:      outcome.Bytes,
		MD5:        outcome.MD5,
		Asset:      raw,
	}
	if err := c.sink.Append(entry); err != nil {
		c.logger.Errorf("写入资产 %s 元数据失败: %v", asset.ID, err)
	}
}

// fail 记录非取消类失败，该资产计为跳过。
func (c *Coordinator) fail(task *Task, outcome model.DownloadOutcome, err error) model.DownloadOutcome {
	outcome.Success = false
	outcome.Skipped = true
	outcome.Err = err
	task.SetError(err)
	c.notifyProgress(task)
	return outcome
}

func (c *Coordinator) cancel(task *Task, outcome model.DownloadOutcome, err error) model.DownloadOutcome {
	outcome.Success = false
	outcome.Err = err
	task.mu.Lock()
	task.Error = err
	task.mu.Unlock()
	task.SetStatus(TaskStatusCanceled)
	c.notifyProgress(task)
	return outcome
}

type progressWriter struct {
	w       io.Writer
	task    *Task
	written int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.task.SetProgress(p.written)
	return n, err
}
