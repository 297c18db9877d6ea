package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
	"github.com/dnslin/ocm-export/core/model"
)

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cp := NewFileCheckpointStore(filepath.Join(dir, "meta", StateFile))

	got, err := cp.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, got.LastOffset, "无历史状态时偏移量应为 0")

	require.NoError(t, cp.Save(model.Checkpoint{LastOffset: 300}))
	got, err = cp.Load()
	require.NoError(t, err)
	assert.Equal(t, 300, got.LastOffset)

	data, err := os.ReadFile(cp.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_offset":300}`, string(data))

	matches, _ := filepath.Glob(filepath.Join(dir, "meta", "*.tmp-*"))
	assert.Empty(t, matches, "不应残留临时文件")
}

func TestCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), StateFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileCheckpointStore(path).Load()
	require.Error(t, err)
	assert.Equal(t, coreerrors.ErrCodeInvalidState, coreerrors.CodeOf(err))
}

func TestCheckpointReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), StateFile)
	cp := NewFileCheckpointStore(path)
	require.NoError(t, cp.Reset(), "不存在时重置应成功")
	require.NoError(t, cp.Save(model.Checkpoint{LastOffset: 50}))
	require.NoError(t, cp.Reset())
	got, err := cp.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, got.LastOffset)
}

func TestCheckpointRejectsNegative(t *testing.T) {
	cp := NewFileCheckpointStore(filepath.Join(t.TempDir(), StateFile))
	assert.Error(t, cp.Save(model.Checkpoint{LastOffset: -1}))
}

func TestAssetLogConcurrentAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta", AssetsFile)
	log, err := OpenAssetLog(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := log.Append(AssetEntry{
				RunID:      "run",
				AssetID:    fmt.Sprintf("A%d", i),
				LocalPath:  fmt.Sprintf("files/A%d_x.bin", i),
				ExportedAt: time.Now(),
				Asset:      json.RawMessage(fmt.Sprintf(`{"id":"A%d","name":"x"}`, i)),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.NoError(t, log.Close())
	require.NoError(t, log.Close(), "重复关闭应安全")

	entries, err := ReadAssetLog(path)
	require.NoError(t, err)
	assert.Len(t, entries, 50, "每次追加应各占一行且互不交错")

	assert.Error(t, log.Append(AssetEntry{AssetID: "late"}), "关闭后追加应报错")
}

func TestReadAssetLogDedupLastWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), AssetsFile)
	for _, run := range []string{"r1", "r2"} {
		log, err := OpenAssetLog(path)
		require.NoError(t, err)
		require.NoError(t, log.Append(AssetEntry{RunID: run, AssetID: "A1", Asset: json.RawMessage(`{"id":"A1"}`)}))
		require.NoError(t, log.Append(AssetEntry{RunID: run, AssetID: "A2", Asset: json.RawMessage(`{"id":"A2"}`)}))
		require.NoError(t, log.Close())
	}

	entries, err := ReadAssetLog(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A1", entries[0].AssetID)
	assert.Equal(t, "r2", entries[0].RunID, "后写入的记录应覆盖")
	assert.Equal(t, "A2", entries[1].AssetID)
}

func TestReadAssetLogTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), AssetsFile)
	content := `{"run_id":"r","asset_id":"A1","asset":{}}` + "\n" + `{"run_id":"r","asset_`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	entries, err := ReadAssetLog(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	corrupt := `{"bad` + "\n" + `{"run_id":"r","asset_id":"A1","asset":{}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(corrupt), 0o644))
	_, err = ReadAssetLog(path)
	assert.Error(t, err, "中间行损坏应报错")
}

func TestReadAssetLogMissing(t *testing.T) {
	entries, err := ReadAssetLog(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFolderSnapshot(t *testing.T) {
	snap := NewFolderSnapshot(filepath.Join(t.TempDir(), "meta", FoldersFile))
	assert.False(t, snap.Exists())

	var records []model.AssetRecord
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"F1","name":"Root","type":"folder"},
		{"id":"F2","name":"Child","type":"folder","parentId":"F1","custom":{"k":1}}
	]`), &records))
	require.NoError(t, snap.Save(records))
	assert.True(t, snap.Exists())

	loaded, err := snap.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "F1", loaded[1].FolderID)
	assert.Contains(t, string(loaded[1].Raw), "custom", "应保留原始字段")
}

func TestPaths(t *testing.T) {
	p := Paths{FilesDir: "out/files", MetaDir: "out/meta"}
	assert.Equal(t, filepath.Join("out/meta", StateFile), p.State())
	assert.Equal(t, filepath.Join("out/meta", AssetsFile), p.Assets())
	assert.Equal(t, filepath.Join("out/meta", FoldersFile), p.Folders())
	assert.Equal(t, filepath.Join("out/meta", MembersFile), p.Members())
}
