package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/fpcurate/internal/app/batch"
)

// itemEntry 是条目文件中的一项：纯字符串即 URL，映射形式为 {url, args}。
type itemEntry batch.Item

func (e *itemEntry) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Decode(&e.URL)
	case yaml.MappingNode:
		var raw struct {
			URL  string         `yaml:"url"`
			Args map[string]any `yaml:"args"`
		}
		if err := n.Decode(&raw); err != nil {
			return err
		}
		e.URL, e.Args = raw.URL, raw.Args
		return nil
	}
	return fmt.Errorf("第 %d 行：条目必须是字符串或 {url, args}", n.Line)
}

// readItems 把命令行参数展开为条目：存在的文件按条目文件读取，其余视为 URL。
func readItems(cwd string, args []string) ([]batch.Item, error) {
	var items []batch.Item
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		p := a
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		fi, err := os.Stat(p)
		switch {
		case err == nil && fi.Mode().IsRegular():
			got, err := readItemsFile(p)
			if err != nil {
				return nil, err
			}
			items = append(items, got...)
		case err == nil:
			return nil, fmt.Errorf("%q 是目录，不是条目文件", a)
		case errors.Is(err, fs.ErrPermission):
			return nil, err
		default:
			items = append(items, batch.Item{URL: a})
		}
	}
	return items, nil
}

// readItemsFile 读取条目文件：.yaml/.yml 为条目列表，其他格式每行一个 URL（# 开头为注释）。
func readItemsFile(path string) ([]batch.Item, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var entries []itemEntry
		if err := yaml.Unmarshal(b, &entries); err != nil {
			return nil, fmt.Errorf("解析条目文件 %q 失败：%w", path, err)
		}
		items := make([]batch.Item, 0, len(entries))
		for i, e := range entries {
			if strings.TrimSpace(e.URL) == "" {
				return nil, fmt.Errorf("条目文件 %q 第 %d 项缺少 url", path, i+1)
			}
			items = append(items, batch.Item(e))
		}
		return items, nil
	}

	var items []batch.Item
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, batch.Item{URL: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("读取条目文件 %q 失败：%w", path, err)
	}
	return items, nil
}
