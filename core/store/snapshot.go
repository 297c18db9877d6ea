package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dnslin/ocm-export/core/model"
)

// FolderSnapshot 以 JSON 数组保存文件夹原始记录，存在时后续运行直接复用。
type FolderSnapshot struct {
	path string
}

// NewFolderSnapshot 创建快照存储。
func NewFolderSnapshot(path string) *FolderSnapshot {
	return &FolderSnapshot{path: path}
}

// Exists 判断快照文件是否存在。
func (s *FolderSnapshot) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load 读取快照，非文件夹记录会被过滤。
func (s *FolderSnapshot) Load() ([]model.AssetRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: 读取文件夹快照失败: %w", err)
	}
	var records []model.AssetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: 文件夹快照损坏 %s: %w", s.path, err)
	}
	folders := records[:0]
	for _, r := range records {
		if r.IsFolder() {
			folders = append(folders, r)
		}
	}
	return folders, nil
}

// Save 原子写入快照。
func (s *FolderSnapshot) Save(folders []model.AssetRecord) error {
	if folders == nil {
		folders = []model.AssetRecord{}
	}
	return WriteJSONAtomic(s.path, folders)
}
