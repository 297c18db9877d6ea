package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AssetLog 追加写入的 NDJSON 元数据日志，每次 Append 返回前已 fsync。
type AssetLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenAssetLog 以追加模式打开日志文件。
func OpenAssetLog(path string) (*AssetLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: 创建元数据目录失败: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: 打开元数据日志失败: %w", err)
	}
	return &AssetLog{file: f}, nil
}

// Append 写入一行记录。
func (l *AssetLog) Append(entry AssetEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: 序列化元数据失败: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("store: 元数据日志已关闭")
	}
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("store: 写入元数据失败: %w", err)
	}
	return l.file.Sync()
}

// Close 关闭日志，重复调用安全。
func (l *AssetLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// maxLineSize 单行记录上限。
const maxLineSize = 16 << 20

// ReadAssetLog 读取日志并按资产 ID 去重，后写入者覆盖先写入者，结果按首次出现顺序排列。
// 末尾不完整的行会被忽略。
func ReadAssetLog(path string) ([]AssetEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: 打开元数据日志失败: %w", err)
	}
	defer f.Close()

	var (
		entries []AssetEntry
		pos     = make(map[string]int)
		line    int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)
	var pending error
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if pending != nil {
			return nil, pending
		}
		var entry AssetEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			// 只有最后一行允许损坏（写入中断）
			pending = fmt.Errorf("store: 元数据日志第 %d 行损坏: %w", line, err)
			continue
		}
		if i, ok := pos[entry.AssetID]; ok {
			entries[i] = entry
			continue
		}
		pos[entry.AssetID] = len(entries)
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: 读取元数据日志失败: %w", err)
	}
	return entries, nil
}
