// Package fsx 收拢 curation 落盘用到的文件系统操作：原子写入、建目录、删除、扫描，
// 以及路径合法性检查。
package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// 测试通过替换该函数模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示路径已被另一种类型占用，例如要写 meta.yaml 的位置是个目录。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("路径类型冲突：%q（需要 %s，实际是 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// WriteFile 把 data 原子地写到 dir/name，已存在则整体替换；dir 不存在时先创建。
//
// meta.yaml、进度文件与运行报告都经由这里写入，
// 中途失败时磁盘上保留的是旧内容，临时文件会被清理。
func WriteFile(dir, name string, data []byte) error {
	switch {
	case name == "":
		return &EmptyLocationError{Op: "写入文件"}
	case strings.ContainsAny(name, `/\`) || HasInvalidPath(name):
		return &InvalidCharacterError{Path: name}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)
	if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return fmt.Errorf("写入 %q：%w", dst, err)
	}
	committed = true

	if runtime.GOOS != "windows" {
		if d, err := os.Open(dir); err == nil {
			_ = d.Sync()
			_ = d.Close()
		}
	}
	return nil
}
