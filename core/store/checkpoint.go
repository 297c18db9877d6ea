package store

import (
	"encoding/json"
	"errors"
	"os"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
	"github.com/dnslin/ocm-export/core/model"
)

// FileCheckpointStore 以 JSON 文件保存分页游标。
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore 创建检查点存储。
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

// Path 返回持久化文件路径。
func (s *FileCheckpointStore) Path() string {
	return s.path
}

// Load 读取检查点。文件损坏时返回错误，不会静默归零。
func (s *FileCheckpointStore) Load() (model.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Checkpoint{}, nil
	}
	if err != nil {
		return model.Checkpoint{}, coreerrors.Wrap(coreerrors.ErrCodeStorage, "store: 读取检查点失败", err)
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return model.Checkpoint{}, coreerrors.Wrap(coreerrors.ErrCodeInvalidState, "store: 检查点文件损坏 "+s.path, err)
	}
	if cp.LastOffset < 0 {
		return model.Checkpoint{}, coreerrors.New(coreerrors.ErrCodeInvalidState, "store: 检查点偏移量为负数")
	}
	return cp, nil
}

// Save 原子写入检查点。
func (s *FileCheckpointStore) Save(cp model.Checkpoint) error {
	if cp.LastOffset < 0 {
		return coreerrors.New(coreerrors.ErrCodeInvalidArgument, "store: 检查点偏移量为负数")
	}
	if err := WriteJSONAtomic(s.path, cp); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStorage, "store: 保存检查点失败", err)
	}
	return nil
}

// Reset 删除检查点文件，不存在时视为成功。
func (s *FileCheckpointStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return coreerrors.Wrap(coreerrors.ErrCodeStorage, "store: 删除检查点失败", err)
	}
	return nil
}
