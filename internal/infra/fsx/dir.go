package fsx

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// MakeDir 创建目录（含父目录）。
//
// 返回值 created=false 表示目录已存在。path 上若已有非目录文件：
// overwrite=true 时删除该文件后建目录，否则返回 PathTypeConflictError。
func MakeDir(path string, overwrite bool) (created bool, err error) {
	if err := checkPath("创建目录", path); err != nil {
		return false, err
	}

	fi, err := os.Stat(path)
	switch {
	case err == nil && fi.IsDir():
		return false, nil
	case err == nil:
		if !overwrite {
			return false, &PathTypeConflictError{Path: path, Want: "dir", Got: "file"}
		}
		if err := os.Remove(path); err != nil {
			return false, err
		}
	case !os.IsNotExist(err):
		return false, err
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

// Delete 递归删除文件或目录；不存在时返回 false 且不报错。
func Delete(path string) (bool, error) {
	if err := checkPath("删除", path); err != nil {
		return false, err
	}
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(path); err != nil {
		return false, err
	}
	return true, nil
}

// ScanDir 列出 root 下的文件与子目录（绝对路径，按字典序）。
//
// pattern 非空时只保留完整路径（统一为 / 分隔）整体匹配 pattern 的文件；目录不受影响。
// recursive=false 时只看 root 的直接子项。
func ScanDir(root string, pattern *regexp.Regexp, recursive bool) (files, dirs []string, err error) {
	if err := checkPath("扫描目录", root); err != nil {
		return nil, nil, err
	}
	root = filepath.Clean(root)

	fi, err := os.Stat(root)
	if err != nil {
		return nil, nil, err
	}
	if !fi.IsDir() {
		return nil, nil, &PathTypeConflictError{Path: root, Want: "dir", Got: "file"}
	}

	var full *regexp.Regexp
	if pattern != nil {
		full, err = regexp.Compile(`^(?:` + pattern.String() + `)$`)
		if err != nil {
			return nil, nil, err
		}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if full == nil || full.MatchString(filepath.ToSlash(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}
