// Package curation 定义一次 curation（元数据 + 资源）的生命周期：
// 构造 -> 解析页面 -> 校验 -> 落盘。
package curation

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/John-Robertt/fpcurate/internal/meta"
)

// Curation 是一个待落盘的 curation。
//
// Args 保存不在别名表中的参数（站点解析器自用），不校验也不写入 meta.yaml。
// Config 是批处理传入的共享配置（如 clients.txt 中的键值），只读。
type Curation struct {
	Meta   *meta.Record
	Args   map[string]any
	Logo   string
	SS     string
	Config map[string]string
	ID     string

	// Parser 为空时使用 Noop。
	Parser Parser
}

// New 返回带默认元数据与新 id 的 curation，再依次写入 kv。
func New(kv map[string]any) *Curation {
	c := &Curation{
		Meta: meta.New(),
		Args: map[string]any{},
		ID:   uuid.NewString(),
	}
	c.SetAll(kv)
	return c
}

// From 深拷贝 src（元数据、Args、资源地址、id 与解析器），再依次写入 kv。
func From(src *Curation, kv map[string]any) *Curation {
	c := src.Clone()
	c.SetAll(kv)
	return c
}

// Clone 深拷贝 c。Config 与 Parser 共享引用。
func (c *Curation) Clone() *Curation {
	return &Curation{
		Meta:   c.Meta.Clone(),
		Args:   cloneArgs(c.Args),
		Logo:   c.Logo,
		SS:     c.SS,
		Config: c.Config,
		ID:     c.ID,
		Parser: c.Parser,
	}
}

func cloneArgs(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case []string:
			v = append([]string(nil), x...)
		case map[string]any:
			v = maps.Clone(x)
		}
		out[k] = v
	}
	return out
}

// NewID 重新生成 id。
func (c *Curation) NewID() {
	c.ID = uuid.NewString()
}

// Set 写入一个参数：能解析为字段的写入元数据（"" 存为 null），其余写入 Args。
func (c *Curation) Set(key string, v any) {
	if f, ok := meta.Resolve(key); ok {
		c.Meta.Set(f, v)
		return
	}
	if c.Args == nil {
		c.Args = map[string]any{}
	}
	c.Args[key] = v
}

// SetAll 按 key 的字典序写入 kv；多个别名指向同一字段时结果是确定的。
func (c *Curation) SetAll(kv map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		c.Set(k, kv[k])
	}
}

// Get 读取一个参数：字段名/别名读元数据，否则读 Args；不存在时返回 nil。
func (c *Curation) Get(key string) any {
	if f, ok := meta.Resolve(key); ok {
		return c.Meta.Get(f)
	}
	return c.Args[key]
}

// String 返回 Get(key) 的字符串值；不是字符串时返回空串。
func (c *Curation) String(key string) string {
	s, _ := c.Get(key).(string)
	return s
}

func (c *Curation) parser() Parser {
	if c.Parser == nil {
		return Noop{}
	}
	return c.Parser
}

var uuidRE = regexp.MustCompile(`^[0-9a-f]{8}(-[0-9a-f]{4}){3}-[0-9a-f]{12}$`)

// Load 读取 folder 中的 meta.yaml 构造 curation。
// 目录名是小写 UUID 时用作 id，否则生成新 id。
func Load(folder string) (*Curation, error) {
	b, err := os.ReadFile(filepath.Join(folder, meta.FileName))
	if err != nil {
		return nil, err
	}
	r, err := meta.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s：%w", folder, err)
	}

	c := &Curation{Meta: r, Args: map[string]any{}, ID: uuid.NewString()}
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(folder, `\`, "/")))
	if uuidRE.MatchString(name) {
		if _, err := uuid.Parse(name); err == nil {
			c.ID = name
		}
	}
	return c, nil
}
