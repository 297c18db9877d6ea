package folder

import (
	"strings"
	"unicode"
)

var nameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// Sanitize 将名称转换为可用的路径片段：替换保留字符、去除控制字符与首尾空白。
// 空名称返回 "unnamed"，仅由点组成的名称（"."、".." 等）返回 "_"。
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(nameReplacer.Replace(cleaned))
	if cleaned == "" {
		return "unnamed"
	}
	if strings.Trim(cleaned, ".") == "" {
		return "_"
	}
	return cleaned
}
