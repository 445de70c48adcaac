package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

// DefaultMemEntries 是内存层默认保留的页面数。
const DefaultMemEntries = 256

var ErrReadOnly = errors.New("cache: read-only")

// Store 缓存已抓取的页面 HTML：内存 LRU 在前，<Root>/pages/<sha256>.html 在后。
//
// 约束：
// - Root 为空时只有内存层
// - ReadOnly=true 时只读磁盘，不写入
type Store struct {
	Root     string
	ReadOnly bool

	mem *lru.Cache[string, []byte]
}

func New(root string, readOnly bool) (*Store, error) {
	mem, err := lru.New[string, []byte](DefaultMemEntries)
	if err != nil {
		return nil, err
	}
	root = strings.TrimSpace(root)
	if root != "" {
		root = filepath.Clean(root)
	}
	return &Store{Root: root, ReadOnly: readOnly, mem: mem}, nil
}

// PagePath 返回 url 对应的磁盘缓存路径；Root 为空时返回空串。
func (s *Store) PagePath(url string) string {
	if s.Root == "" {
		return ""
	}
	return filepath.Join(s.Root, "pages", key(url)+".html")
}

// Get 先查内存再查磁盘；磁盘命中会回填内存。
func (s *Store) Get(url string) ([]byte, bool, error) {
	k := key(url)
	if b, ok := s.mem.Get(k); ok {
		return b, true, nil
	}
	p := s.PagePath(url)
	if p == "" {
		return nil, false, nil
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s.mem.Add(k, b)
	return b, true, nil
}

// Put 写入内存；Root 非空且可写时同时落盘。
func (s *Store) Put(url string, html []byte) error {
	s.mem.Add(key(url), html)
	if s.Root == "" {
		return nil
	}
	if s.ReadOnly {
		return ErrReadOnly
	}
	return fsx.WriteFile(filepath.Join(s.Root, "pages"), key(url)+".html", html)
}

// Len 返回内存层条目数。
func (s *Store) Len() int { return s.mem.Len() }

func key(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}
