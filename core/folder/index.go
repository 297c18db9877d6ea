// Package folder 根据扁平的父指针元数据构建文件夹 ID 到相对路径的索引。
package folder

import (
	"path/filepath"

	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/model"
)

// Outcome 单个文件夹的解析结果分类。
type Outcome int

const (
	// Resolved 父链完整。
	Resolved Outcome = iota
	// Orphan 父文件夹未知，作为根处理。
	Orphan
	// Cycle 父链成环，在重访节点处断开作为根。
	Cycle
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Orphan:
		return "orphan"
	case Cycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// Index 文件夹 ID 到相对路径的只读映射，构建完成后可被多个 goroutine 无锁读取。
type Index struct {
	paths    map[string]string
	outcomes map[string]Outcome
}

// Path 返回文件夹的相对路径。
func (i *Index) Path(id string) (string, bool) {
	if i == nil || id == "" {
		return "", false
	}
	p, ok := i.paths[id]
	return p, ok
}

// Outcome 返回文件夹的解析分类。
func (i *Index) Outcome(id string) (Outcome, bool) {
	if i == nil {
		return Resolved, false
	}
	o, ok := i.outcomes[id]
	return o, ok
}

// Len 返回已索引的文件夹数量。
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.paths)
}

// Counts 按分类统计文件夹数量。
func (i *Index) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, 3)
	if i == nil {
		return counts
	}
	for _, o := range i.outcomes {
		counts[o]++
	}
	return counts
}

type resolver struct {
	byID     map[string]model.FolderNode
	paths    map[string]string
	outcomes map[string]Outcome
	inCycle  map[string]struct{}
	logger   httpclient.Logger
}

// walk 记录单次解析的访问链，用于识别环上的成员。
type walk struct {
	chain []string
	pos   map[string]int
}

func (w *walk) push(id string) {
	w.pos[id] = len(w.chain)
	w.chain = append(w.chain, id)
}

// BuildIndex 解析所有文件夹的路径。重复 ID 以首条为准；未知父节点与环都会把节点挂到根下并记录告警。
func BuildIndex(folders []model.FolderNode, logger httpclient.Logger) *Index {
	if logger == nil {
		logger = httpclient.NopLogger{}
	}
	r := &resolver{
		byID:     make(map[string]model.FolderNode, len(folders)),
		paths:    make(map[string]string, len(folders)),
		outcomes: make(map[string]Outcome, len(folders)),
		inCycle:  make(map[string]struct{}),
		logger:   logger,
	}
	order := make([]string, 0, len(folders))
	for _, f := range folders {
		if f.ID == "" {
			logger.Warnf("忽略缺少 ID 的文件夹: %q", f.Name)
			continue
		}
		if _, dup := r.byID[f.ID]; dup {
			logger.Warnf("重复的文件夹 ID %s，保留首条记录", f.ID)
			continue
		}
		r.byID[f.ID] = f
		order = append(order, f.ID)
	}
	for _, id := range order {
		r.resolve(id, &walk{pos: make(map[string]int)})
	}
	return &Index{paths: r.paths, outcomes: r.outcomes}
}

// resolve 沿父指针向上解析并记忆每个祖先，w 仅属于当前这一次解析。
func (r *resolver) resolve(id string, w *walk) string {
	if p, ok := r.paths[id]; ok {
		return p
	}
	node := r.byID[id]
	name := Sanitize(node.Name)
	w.push(id)

	parentID := node.ParentID
	switch {
	case parentID == "":
		return r.store(id, name, Resolved)
	case parentID == id:
		r.logger.Warnf("文件夹 %s 的父节点指向自身，作为根处理", id)
		return r.store(id, name, Cycle)
	}
	if _, known := r.byID[parentID]; !known {
		r.logger.Warnf("文件夹 %s 的父节点 %s 不存在，作为根处理", id, parentID)
		return r.store(id, name, Orphan)
	}
	if start, seen := w.pos[parentID]; seen {
		// 在重访节点处断环：父节点成为根
		for _, member := range w.chain[start:] {
			r.inCycle[member] = struct{}{}
		}
		r.logger.Warnf("检测到文件夹环 %v，在 %s 处断开", w.chain[start:], parentID)
		r.store(parentID, Sanitize(r.byID[parentID].Name), Cycle)
		return r.store(id, filepath.Join(r.paths[parentID], name), Cycle)
	}

	parentPath := r.resolve(parentID, w)
	if p, ok := r.paths[id]; ok {
		// 更深层的断环已经确定了本节点路径
		return p
	}
	outcome := Resolved
	if _, ok := r.inCycle[id]; ok {
		outcome = Cycle
	}
	return r.store(id, filepath.Join(parentPath, name), outcome)
}

func (r *resolver) store(id, path string, outcome Outcome) string {
	r.paths[id] = path
	r.outcomes[id] = outcome
	return path
}
