// Package export 串联分页、文件夹索引、检查点与下载协调器，完成一次完整导出。
package export

import (
	"context"
	"fmt"
	"time"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/model"
)

// ErrEnumeration 分页获取在重试耗尽后仍失败，导出必须中止。
var ErrEnumeration = coreerrors.New(coreerrors.ErrCodeEnumeration, "export: 目录分页失败")

// Lister 获取一页目录记录，重试由实现方负责。
type Lister interface {
	ListAssets(ctx context.Context, offset, limit int) ([]model.AssetRecord, error)
}

// Page 一页已分类的目录记录。
type Page struct {
	Offset   int
	Folders  []model.AssetRecord
	Files    []model.AssetRecord
	Duration time.Duration
}

// Len 本页记录总数。
func (p Page) Len() int {
	return len(p.Folders) + len(p.Files)
}

// PageFunc 处理一页记录，返回错误会中止分页。
type PageFunc func(page Page) error

// Paginator 按 offset/limit 顺序遍历目录，直到返回空页。
type Paginator struct {
	lister Lister
	limit  int
	logger httpclient.Logger
}

// NewPaginator 创建分页器。
func NewPaginator(lister Lister, limit int, logger httpclient.Logger) *Paginator {
	if limit <= 0 {
		limit = 100
	}
	if logger == nil {
		logger = httpclient.NopLogger{}
	}
	return &Paginator{lister: lister, limit: limit, logger: logger}
}

// Limit 每页条数。
func (p *Paginator) Limit() int {
	return p.limit
}

// Walk 从 start 开始逐页回调，返回下一页的偏移量。
// 获取失败包装为 ErrEnumeration；上下文取消时原样返回取消错误。
func (p *Paginator) Walk(ctx context.Context, start int, fn PageFunc) (int, error) {
	offset := start
	for {
		if err := ctx.Err(); err != nil {
			return offset, err
		}
		begin := time.Now()
		items, err := p.lister.ListAssets(ctx, offset, p.limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return offset, ctxErr
			}
			return offset, coreerrors.Wrap(coreerrors.ErrCodeEnumeration, fmt.Sprintf("export: 目录分页失败（offset=%d）", offset), err)
		}
		if len(items) == 0 {
			p.logger.Infof("offset=%d 返回空页，分页结束", offset)
			return offset, nil
		}

		page := classify(offset, items)
		page.Duration = time.Since(begin)
		p.logger.Debugf("offset=%d: %d 个文件夹, %d 个文件", offset, len(page.Folders), len(page.Files))
		if err := fn(page); err != nil {
			return offset, err
		}
		offset += p.limit
	}
}

func classify(offset int, items []model.AssetRecord) Page {
	page := Page{Offset: offset}
	for _, item := range items {
		if item.IsFolder() {
			page.Folders = append(page.Folders, item)
		} else {
			page.Files = append(page.Files, item)
		}
	}
	return page
}
