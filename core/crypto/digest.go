// Package crypto 计算下载内容的 MD5 校验值，写入元数据日志供下游核对。
package crypto

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// Digest 流式 MD5 计算器，可串接在下载写入链路上。
type Digest struct {
	h hash.Hash
}

// NewDigest 创建计算器。
func NewDigest() *Digest {
	return &Digest{h: md5.New()}
}

// Write 实现 io.Writer。
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum 返回当前内容的十六进制摘要。
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// DigestBytes 计算字节数据的 MD5 十六进制值。
func DigestBytes(data []byte) string {
	d := NewDigest()
	d.Write(data)
	return d.Sum()
}

// DigestFile 计算文件内容的 MD5 十六进制值。
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	d := NewDigest()
	if _, err := io.Copy(d, f); err != nil {
		return "", err
	}
	return d.Sum(), nil
}
