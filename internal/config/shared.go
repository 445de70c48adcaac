package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

// ReadShared 在 paths 中查找名为 name 的 key=value 文件并合并，paths 靠前的优先。
// 支持 # 注释与 key = value 写法；一个文件都找不到时返回空 map。
func ReadShared(name string, paths []string) (map[string]string, error) {
	if name == "" {
		return nil, &fsx.EmptyLocationError{Op: "查找共享配置"}
	}
	if fsx.HasInvalidPath(name) {
		return nil, &fsx.InvalidCharacterError{Path: name}
	}

	out := map[string]string{}
	for _, dir := range slices.Backward(paths) {
		p := filepath.Join(dir, name)
		fi, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !fi.Mode().IsRegular() {
			return nil, &fsx.PathTypeConflictError{Path: p, Want: "file", Got: "dir"}
		}
		kv, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("读取共享配置 %q 失败：%w", p, err)
		}
		for k, v := range kv {
			out[k] = v
		}
	}
	return out, nil
}

// LoadShared 按 eff 读取共享配置；未配置文件名时返回 nil。
func LoadShared(eff EffectiveConfig) (map[string]string, error) {
	if eff.SharedName == "" {
		return nil, nil
	}
	return ReadShared(eff.SharedName, eff.SharedPaths)
}
