// Package model 定义导出流程共享的资产、文件夹与检查点结构。
package model

import (
	"encoding/json"
	"strings"
)

// Kind 区分文件夹与可下载的叶子资产。
type Kind string

const (
	// KindFile 可下载的二进制资产。
	KindFile Kind = "file"
	// KindFolder 文件夹。
	KindFolder Kind = "folder"
)

// FlexString 兼容字符串和数字的 JSON 字段。
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	return nil
}

// String 返回字符串值。
func (f FlexString) String() string {
	return string(f)
}

// AssetRecord 表示目录接口返回的一条记录，获取后不再修改。
type AssetRecord struct {
	ID       string
	Name     string
	MimeType string
	// FolderID 为所在文件夹；对文件夹记录而言即其父文件夹。
	FolderID string
	Kind     Kind
	// Raw 保存接口返回的原始 JSON，写入元数据日志时原样输出。
	Raw json.RawMessage
}

// wireAsset 兼容不同 schema 下父目录字段的命名。
type wireAsset struct {
	ID             FlexString `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	MimeType       string     `json:"mimeType"`
	FolderID       FlexString `json:"folderId"`
	ParentIDUpper  FlexString `json:"parentID"`
	ParentID       FlexString `json:"parentId"`
	ParentFolderID FlexString `json:"parentFolderId"`
	Parent         *struct {
		ID FlexString `json:"id"`
	} `json:"parent"`
}

// UnmarshalJSON 解析记录并保留原始字节。
func (r *AssetRecord) UnmarshalJSON(data []byte) error {
	var w wireAsset
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec := AssetRecord{
		ID:       w.ID.String(),
		Name:     w.Name,
		MimeType: w.MimeType,
		Kind:     KindFile,
		Raw:      append(json.RawMessage(nil), data...),
	}
	if strings.EqualFold(w.Type, string(KindFolder)) {
		rec.Kind = KindFolder
		rec.FolderID = firstNonEmpty(w.ParentIDUpper.String(), w.ParentID.String(), w.ParentFolderID.String())
		if rec.FolderID == "" && w.Parent != nil {
			rec.FolderID = w.Parent.ID.String()
		}
	} else {
		rec.FolderID = firstNonEmpty(w.FolderID.String(), w.ParentIDUpper.String(), w.ParentID.String())
	}
	*r = rec
	return nil
}

// MarshalJSON 优先输出原始记录。
func (r AssetRecord) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	w := struct {
		ID       string `json:"id"`
		Name     string `json:"name,omitempty"`
		Type     Kind   `json:"type"`
		MimeType string `json:"mimeType,omitempty"`
		FolderID string `json:"folderId,omitempty"`
	}{r.ID, r.Name, r.Kind, r.MimeType, r.FolderID}
	return json.Marshal(w)
}

// IsFolder 判断记录是否为文件夹。
func (r AssetRecord) IsFolder() bool {
	return r.Kind == KindFolder
}

// Folder 将文件夹记录转换为 FolderNode。
func (r AssetRecord) Folder() FolderNode {
	return FolderNode{ID: r.ID, Name: r.Name, ParentID: r.FolderID}
}

// FolderNode 是文件夹记录的精简视图。
type FolderNode struct {
	ID       string
	Name     string
	ParentID string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
