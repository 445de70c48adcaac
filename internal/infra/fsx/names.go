package fsx

import (
	"fmt"
	"strings"
	"unicode"
)

// EmptyLocationError 表示调用方给了空路径/空文件名。
type EmptyLocationError struct {
	Op string
}

func (e *EmptyLocationError) Error() string {
	if e.Op == "" {
		return "路径不能为空"
	}
	return e.Op + "：路径不能为空"
}

// InvalidCharacterError 表示路径包含文件系统不允许的字符。
type InvalidCharacterError struct {
	Path string
}

func (e *InvalidCharacterError) Error() string {
	return fmt.Sprintf("路径包含非法字符：%q", e.Path)
}

// 非法字符集合：< > : " | ? * 与控制字符；slash=true 时 / 和 \ 也算非法。
//
// 例外：第 2 个字符紧跟在开头的单词字符之后时不算非法，
// 这样 Windows 盘符（"C:"）可以保留。
func isInvalidAt(rs []rune, i int, slash bool) bool {
	if i == 1 && isWordRune(rs[0]) {
		return false
	}
	r := rs[i]
	switch r {
	case '<', '>', ':', '"', '|', '?', '*':
		return true
	case '/', '\\':
		return slash
	}
	return r < 0x20
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// StripInvalid 删除文件名中的非法字符（含路径分隔符），用于从标题生成目录名。
func StripInvalid(name string) string {
	rs := []rune(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range rs {
		if isInvalidAt(rs, i, true) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ReplaceInvalidPath 把路径中的非法字符替换为 repl，保留路径分隔符。
func ReplaceInvalidPath(p, repl string) string {
	rs := []rune(p)
	var b strings.Builder
	b.Grow(len(p))
	for i, r := range rs {
		if isInvalidAt(rs, i, false) {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasInvalidPath 判断路径（不含分隔符）是否包含非法字符。
func HasInvalidPath(p string) bool {
	rs := []rune(p)
	for i := range rs {
		if isInvalidAt(rs, i, false) {
			return true
		}
	}
	return false
}

func checkPath(op, p string) error {
	if p == "" {
		return &EmptyLocationError{Op: op}
	}
	if HasInvalidPath(p) {
		return &InvalidCharacterError{Path: p}
	}
	return nil
}
