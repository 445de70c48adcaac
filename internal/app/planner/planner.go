// Package planner 决定 curation 落盘的目录名（不做任何写入）。
package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

// NoTitle 是标题为空时使用的目录名。
const NoTitle = "No Title"

// FolderName 返回 curation 的基础目录名。
//
// useTitle=true 时取标题：去掉首尾空白与文件系统非法字符，并做 NFC 归一化，
// 这样同一标题不论来源页面用哪种 Unicode 组合形式都得到同一个目录名；
// 标题为空、清理后为空或只剩 "." ".." 这类相对路径段时用 NoTitle。
// useTitle=false 时直接用 id。
func FolderName(title string, useTitle bool, id string) string {
	if !useTitle {
		return id
	}
	name := norm.NFC.String(strings.TrimSpace(fsx.StripInvalid(strings.TrimSpace(title))))
	if name == "" || name == "." || !filepath.IsLocal(name) {
		return NoTitle
	}
	return name
}

// ReadExisting 读取 root 下已存在的条目名（文件与目录都算）。
// root 不存在时返回空集合且不报错。
func ReadExisting(root string) (map[string]struct{}, error) {
	used := map[string]struct{}{}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return used, nil
		}
		return nil, err
	}
	for _, e := range entries {
		used[e.Name()] = struct{}{}
	}
	return used, nil
}

// AllocFolder 在 root 下为 name 分配目录路径。
//
// overwrite=true 时直接返回 root/name；否则若 name 已被占用，依次尝试
// "name (2)"、"name (3)"…，返回第一个未被占用的路径。
// name 必须是 root 下的单层目录名，否则返回 InvalidCharacterError。
func AllocFolder(root, name string, overwrite bool) (string, error) {
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return "", &fsx.InvalidCharacterError{Path: name}
	}
	if overwrite {
		return filepath.Join(root, name), nil
	}
	used, err := ReadExisting(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, allocName(name, used)), nil
}

func allocName(name string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		return name
	}
	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s (%d)", name, n)
		if _, ok := used[cand]; !ok {
			return cand
		}
	}
}
