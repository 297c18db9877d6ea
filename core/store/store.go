// Package store 负责导出过程的持久化：检查点、资产元数据日志与文件夹快照。
package store

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/dnslin/ocm-export/core/model"
)

// 元数据目录下的固定文件名。
const (
	StateFile   = "state.json"
	AssetsFile  = "assets.jsonl"
	FoldersFile = "folders.json"
	MembersFile = "members.json"
)

// CheckpointStore 分页游标持久化。
type CheckpointStore interface {
	// Load 无历史状态时返回零值检查点。
	Load() (model.Checkpoint, error)
	// Save 原子替换持久化文件。
	Save(cp model.Checkpoint) error
	// Reset 删除已保存的检查点。
	Reset() error
}

// AssetSink 并发安全的资产元数据追加接口。
type AssetSink interface {
	Append(entry AssetEntry) error
}

// FolderSnapshotStore 文件夹原始元数据快照。
type FolderSnapshotStore interface {
	Exists() bool
	Load() ([]model.AssetRecord, error)
	Save(folders []model.AssetRecord) error
}

// AssetEntry 元数据日志中的一行。
type AssetEntry struct {
	RunID      string          `json:"run_id"`
	AssetID    string          `json:"asset_id"`
	LocalPath  string          `json:"local_path"`
	ExportedAt time.Time       `json:"exported_at"`
	Existing   bool            `json:"existing,omitempty"`
	Bytes      int64           `json:"bytes,omitempty"`
	MD5        string          `json:"md5,omitempty"`
	Asset      json.RawMessage `json:"asset"`
}

// Paths 描述导出目录布局。
type Paths struct {
	FilesDir string
	MetaDir  string
}

func (p Paths) State() string   { return filepath.Join(p.MetaDir, StateFile) }
func (p Paths) Assets() string  { return filepath.Join(p.MetaDir, AssetsFile) }
func (p Paths) Folders() string { return filepath.Join(p.MetaDir, FoldersFile) }
func (p Paths) Members() string { return filepath.Join(p.MetaDir, MembersFile) }
