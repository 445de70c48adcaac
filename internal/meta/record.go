package meta

import (
	"errors"
	"fmt"
	"strings"
)

// 保留标题：Extras 存附加资料目录名，Message 存提示文本。比较时不区分大小写。
const (
	HeadingExtras  = "Extras"
	HeadingMessage = "Message"
)

// ErrAppNotFound 表示要删除的附加应用不存在。
var ErrAppNotFound = errors.New("附加应用不存在")

// ReservedHeadingError 表示试图用保留标题（extras/message）创建普通附加应用。
type ReservedHeadingError struct {
	Heading string
}

func (e *ReservedHeadingError) Error() string {
	return fmt.Sprintf("不能创建标题为 %q 的附加应用：extras/message 是保留标题", e.Heading)
}

// IsReserved 判断 heading 是否为保留标题（不区分大小写）。
func IsReserved(heading string) bool {
	switch strings.ToLower(heading) {
	case "extras", "message":
		return true
	}
	return false
}

// App 是一个附加应用的子记录。
type App struct {
	ApplicationPath string
	LaunchCommand   string
}

// AppEntry 是 Additional Applications 中的一项。
//
// App 非 nil 表示子记录；否则该项是纯文本 Text（保留标题的用法）。
// 非保留标题下出现纯文本视为格式错误，由校验器报告。
type AppEntry struct {
	Heading string
	App     *App
	Text    string
}

// Record 是一条元数据记录。
//
// 字段值为 nil、string、[]string 或 bool 之一；多值字段（Tags/Languages/Play Mode/Status）
// 既可以是单个字符串、"; " 连接的字符串，也可以是字符串列表，由校验器统一归一化。
// 键的顺序即序列化顺序：默认字段在前，之后写入的未知键按首次出现追加。
type Record struct {
	keys   []Field
	values map[Field]any
	apps   []AppEntry
}

// New 返回带默认值的记录。
func New() *Record {
	r := &Record{
		keys:   append([]Field(nil), Fields...),
		values: make(map[Field]any, len(Fields)),
	}
	r.values[Library] = "arcade"
	r.values[PlayMode] = "Single Player"
	r.values[Languages] = "en"
	r.values[Extreme] = "No"
	r.values[Platform] = "Flash"
	r.values[Status] = "Playable"
	r.values[ApplicationPath] = Flash
	return r
}

// empty 返回没有任何键的记录，用于反序列化。
func empty() *Record {
	return &Record{values: map[Field]any{}}
}

// Get 返回字段值；不存在时返回 nil。
func (r *Record) Get(f Field) any {
	return r.values[f]
}

// String 返回字段的字符串值；值不是字符串（或为 nil）时返回空串。
func (r *Record) String(f Field) string {
	s, _ := r.values[f].(string)
	return s
}

// Set 写入字段；空字符串按 nil 存储。不做任何校验。
func (r *Record) Set(f Field, v any) {
	if s, ok := v.(string); ok && s == "" {
		v = nil
	}
	if !r.hasKey(f) {
		r.keys = append(r.keys, f)
	}
	r.values[f] = normalizeValue(v)
}

// Keys 返回序列化顺序下的字段名。
func (r *Record) Keys() []Field {
	return append([]Field(nil), r.keys...)
}

func (r *Record) hasKey(f Field) bool {
	for _, k := range r.keys {
		if k == f {
			return true
		}
	}
	return false
}

// normalizeValue 把常见的 Go 值收敛到 nil/string/[]string/bool 四种形态。
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, []string:
		return v
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			out = append(out, fmt.Sprint(it))
		}
		return out
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// Apps 返回附加应用（按插入顺序）的副本。
func (r *Record) Apps() []AppEntry {
	out := make([]AppEntry, len(r.apps))
	for i, e := range r.apps {
		out[i] = e
		if e.App != nil {
			a := *e.App
			out[i].App = &a
		}
	}
	return out
}

// App 按标题（区分大小写）查找附加应用。
func (r *Record) App(heading string) (AppEntry, bool) {
	if i := r.appIndex(heading); i >= 0 {
		return r.apps[i], true
	}
	return AppEntry{}, false
}

// AddApp 新增或替换一个附加应用；替换时保持原位置。path 为空时使用默认 Flash 播放器。
func (r *Record) AddApp(heading, launch, path string) error {
	if IsReserved(heading) {
		return &ReservedHeadingError{Heading: heading}
	}
	if path == "" {
		path = Flash
	}
	r.putApp(AppEntry{Heading: heading, App: &App{ApplicationPath: path, LaunchCommand: launch}})
	return nil
}

// AddExtras 设置附加资料目录名（覆盖已有值）。
func (r *Record) AddExtras(folder string) {
	r.putApp(AppEntry{Heading: HeadingExtras, Text: folder})
}

// AddMessage 设置提示文本（覆盖已有值）。
func (r *Record) AddMessage(text string) {
	r.putApp(AppEntry{Heading: HeadingMessage, Text: text})
}

// RemoveApp 删除附加应用（含 Extras/Message）；不存在时返回 ErrAppNotFound。
func (r *Record) RemoveApp(heading string) error {
	i := r.appIndex(heading)
	if i < 0 {
		return fmt.Errorf("%w：%q", ErrAppNotFound, heading)
	}
	r.apps = append(r.apps[:i], r.apps[i+1:]...)
	return nil
}

func (r *Record) putApp(e AppEntry) {
	if i := r.appIndex(e.Heading); i >= 0 {
		r.apps[i] = e
		return
	}
	r.apps = append(r.apps, e)
}

func (r *Record) appIndex(heading string) int {
	for i := range r.apps {
		if r.apps[i].Heading == heading {
			return i
		}
	}
	return -1
}

// Clone 深拷贝记录。
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   append([]Field(nil), r.keys...),
		values: make(map[Field]any, len(r.values)),
		apps:   r.Apps(),
	}
	for k, v := range r.values {
		if l, ok := v.([]string); ok {
			v = append([]string(nil), l...)
		}
		c.values[k] = v
	}
	return c
}
