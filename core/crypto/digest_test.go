package crypto

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDigestBytes(t *testing.T) {
	if got := DigestBytes([]byte("hello")); got != "5d41402abc4b2a76b9719d911017c592" {
		t.Fatalf("MD5 不正确: %s", got)
	}
	if got := DigestBytes(nil); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("空内容 MD5 不正确: %s", got)
	}
}

func TestDigestStreaming(t *testing.T) {
	d := NewDigest()
	if _, err := io.Copy(d, strings.NewReader("hel")); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	d.Write([]byte("lo"))
	if got, want := d.Sum(), DigestBytes([]byte("hello")); got != want {
		t.Fatalf("分段写入结果应一致: %s != %s", got, want)
	}
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("写入文件失败: %v", err)
	}
	got, err := DigestFile(path)
	if err != nil {
		t.Fatalf("计算失败: %v", err)
	}
	if got != DigestBytes([]byte("hello")) {
		t.Fatalf("文件 MD5 不正确: %s", got)
	}
	if _, err := DigestFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("文件不存在时应返回错误")
	}
}
