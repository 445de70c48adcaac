// Package site 汇总可用的站点解析器，并生成批处理用的路由表。
package site

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/fpcurate/internal/app/batch"
	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/site/generic"
	"github.com/John-Robertt/fpcurate/internal/site/newgrounds"
)

// Site 把“站点变化”限制在各自的包内部；核心流程只依赖 curation.Parser。
//
// 约束：
// - Pattern 是 regexp 语法，在 URL 任意位置搜索
// - Parse 只读 doc 与 curation 当前状态，不做网络请求（页面由上层抓取与缓存）
type Site interface {
	curation.Parser
	Name() string
	Pattern() string
}

// Registry 是站点的只读注册表：按 name 索引，同时保留注册顺序用于路由。
type Registry struct {
	byName map[string]Site
	order  []Site
}

func NewRegistry(sites ...Site) (Registry, error) {
	byName := make(map[string]Site, len(sites))
	order := make([]Site, 0, len(sites))
	for _, s := range sites {
		if s == nil {
			return Registry{}, fmt.Errorf("site 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("site.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 site：%q", name)
		}
		byName[name] = s
		order = append(order, s)
	}
	return Registry{byName: byName, order: order}, nil
}

// Default 返回内置站点：专用解析器在前，generic 兜底在最后。
func Default() Registry {
	r, err := NewRegistry(newgrounds.Site{}, generic.Site{})
	if err != nil {
		panic(err)
	}
	return r
}

func (r Registry) Get(name string) (Site, bool) {
	if r.byName == nil {
		return nil, false
	}
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names 按注册顺序返回站点名。
func (r Registry) Names() []string {
	out := make([]string, len(r.order))
	for i, s := range r.order {
		out[i] = s.Name()
	}
	return out
}

// Routes 按注册顺序生成路由表（第一个匹配者生效）。
func (r Registry) Routes() []batch.Route {
	out := make([]batch.Route, len(r.order))
	for i, s := range r.order {
		out[i] = batch.Route{Pattern: s.Pattern(), Parser: s}
	}
	return out
}
