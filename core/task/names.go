package task

import (
	"mime"
	"strings"

	"github.com/dnslin/ocm-export/core/folder"
	"github.com/dnslin/ocm-export/core/model"
)

// FileName 生成 "<资产ID>_<清洗后名称><扩展名>"，名称为空时使用 ID。
func FileName(asset model.AssetRecord) string {
	name := asset.Name
	if strings.TrimSpace(name) == "" {
		name = asset.ID
	}
	return folder.Sanitize(asset.ID) + "_" + folder.Sanitize(name) + ExtensionFor(asset.MimeType)
}

// ExtensionFor 由媒体类型推断扩展名，无法解析时返回空串。
func ExtensionFor(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	_, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || subtype == "" {
		return ""
	}
	switch subtype {
	case "jpeg", "pjpeg":
		return ".jpg"
	case "plain":
		return ".txt"
	}
	return "." + folder.Sanitize(subtype)
}
