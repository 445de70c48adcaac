package cache

import (
	"errors"
	"os"
	"testing"
)

func TestStore_ReadWritePages(t *testing.T) {
	root := t.TempDir()
	const u = "https://www.newgrounds.com/portal/view/218014"

	s, err := New(root, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := s.Put(u, []byte("<html/>")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(s.PagePath(u)); err != nil {
		t.Fatalf("期望落盘：%v", err)
	}

	// 新实例只有磁盘层：应命中并回填内存。
	s2, _ := New(root, true)
	b, ok, err := s2.Get(u)
	if err != nil || !ok {
		t.Fatalf("期望命中缓存，实际 ok=%v err=%v", ok, err)
	}
	if string(b) != "<html/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}
	if s2.Len() != 1 {
		t.Fatalf("期望回填内存，实际 Len=%d", s2.Len())
	}
}

func TestStore_ReadOnly(t *testing.T) {
	s, _ := New(t.TempDir(), true)
	err := s.Put("http://example.test/", []byte("x"))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际 %v", err)
	}
	// 内存层仍然可用。
	if _, ok, _ := s.Get("http://example.test/"); !ok {
		t.Fatalf("期望内存命中")
	}
}

func TestStore_MemoryOnly(t *testing.T) {
	s, _ := New("", false)
	if s.PagePath("http://a.test/") != "" {
		t.Fatalf("Root 为空时不应有磁盘路径")
	}
	if err := s.Put("http://a.test/", []byte("a")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok, _ := s.Get("http://b.test/"); ok {
		t.Fatalf("不应命中未写入的 url")
	}
}
