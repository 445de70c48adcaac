// Package validate 检查元数据记录是否符合 Flashpoint 的 curation 格式。
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/John-Robertt/fpcurate/internal/meta"
	"github.com/John-Robertt/fpcurate/internal/urlnorm"
)

// Mode 是校验强度。
type Mode int

const (
	// Skip 不校验。
	Skip Mode = 0
	// Flexible 检查除标签/平台/应用路径之外的全部规则。
	Flexible Mode = 1
	// Rigid 在 Flexible 的基础上按远程词表检查标签、平台，并检查应用路径。
	Rigid Mode = 2
)

// ParseMode 把 0/1/2 或 skip/flexible/rigid 解析为 Mode。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "skip", "none":
		return Skip, nil
	case "1", "flexible", "":
		return Flexible, nil
	case "2", "rigid":
		return Rigid, nil
	}
	return Skip, fmt.Errorf("未知的校验模式：%q（可选 0/1/2 或 skip/flexible/rigid）", s)
}

func (m Mode) String() string {
	switch m {
	case Skip:
		return "skip"
	case Flexible:
		return "flexible"
	case Rigid:
		return "rigid"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Vocabulary 提供严格校验所需的远程词表；实现负责在集合为空时刷新，
// 一次 Sets 调用至多刷新一次。
type Vocabulary interface {
	Sets(ctx context.Context) (platforms, tags meta.Set)
}

var dateRE = regexp.MustCompile(`^\d{4}(-\d{2}){0,2}$`)

// Validate 返回 r 的全部问题，每条一行，顺序固定；空切片表示通过。
//
// 约束：
//   - 每条规则独立判断，一个字段的问题不会影响其它规则
//   - rigid=false 时不会访问 v；rigid=true 且 v 为 nil 时按空词表处理
//   - 不返回 error：词表抓取失败时词表为空，相应值被报告为未知
func Validate(ctx context.Context, r *meta.Record, rigid bool, v Vocabulary) []string {
	problems := []string{}

	var platforms, tags meta.Set
	if rigid && v != nil {
		platforms, tags = v.Sets(ctx)
	}

	if s, _ := r.Get(meta.Title).(string); s == "" {
		problems = append(problems, "Title: 缺失")
	}

	if lib := text(r.Get(meta.Library)); !meta.Libraries.Has(lib) {
		problems = append(problems, fmt.Sprintf(`Library: 无效值 %q，必须是 "arcade" 或 "theatre"`, lib))
	}

	if rigid {
		if bad := consume(list(r.Get(meta.Tags)), tags); len(bad) > 0 {
			problems = append(problems, "Tags: 未知/重复的值 "+quoteAll(bad))
		}
	}

	if bad := consume(list(r.Get(meta.PlayMode)), meta.PlayModes); len(bad) > 0 {
		problems = append(problems, "Play Mode: 无效/重复的值 "+quoteAll(bad))
	}

	status := r.Get(meta.Status)
	if l, ok := status.([]string); ok {
		status = strings.Join(l, "; ")
	}
	if !meta.Statuses.Has(text(status)) {
		problems = append(problems, "Status: 无效值")
	}

	switch d := r.Get(meta.ReleaseDate).(type) {
	case nil:
	case string:
		if d != "" && !dateRE.MatchString(d) {
			problems = append(problems, "Release Date: 格式错误，应为 YYYY-MM-DD（-MM 与 -DD 可省略）")
		}
	default:
		problems = append(problems, "Release Date: 格式错误，应为 YYYY-MM-DD（-MM 与 -DD 可省略）")
	}

	if bad := consume(list(r.Get(meta.Languages)), meta.LanguageCodes); len(bad) > 0 {
		problems = append(problems, "Languages: 未知/重复的值 "+quoteAll(bad))
	}

	switch x := r.Get(meta.Extreme).(type) {
	case bool:
	case string:
		if x != "Yes" && x != "No" {
			problems = append(problems, `Extreme: 无效值，必须是 "Yes"、"No"、true 或 false`)
		}
	default:
		problems = append(problems, `Extreme: 无效值，必须是 "Yes"、"No"、true 或 false`)
	}

	if p := CheckSource(r); p != "" {
		problems = append(problems, "Source: "+p)
	}

	if rigid {
		if p := text(r.Get(meta.Platform)); !platforms.Has(p) {
			problems = append(problems, fmt.Sprintf("Platform: 未知值 %q", p))
		}
		if !meta.Applications.Has(text(r.Get(meta.ApplicationPath))) {
			problems = append(problems, "Application Path: 未知值")
		}
	}

	cmd, _ := r.Get(meta.LaunchCommand).(string)
	switch {
	case cmd == "":
		problems = append(problems, "Launch Command: 缺失")
	case !launchOK(cmd):
		problems = append(problems, "Launch Command: 格式错误，应使用 HTTP 且不要使用 web.archive.org")
	}

	var improper []string
	for _, e := range r.Apps() {
		if meta.IsReserved(e.Heading) {
			continue
		}
		switch {
		case e.App == nil:
			improper = append(improper, e.Heading)
		case rigid && !meta.Applications.Has(e.App.ApplicationPath):
			improper = append(improper, e.Heading)
		case e.App.LaunchCommand == "":
			improper = append(improper, e.Heading)
		case !urlnorm.IsNormalized(e.App.LaunchCommand, false):
			improper = append(improper, e.Heading)
		}
	}
	if len(improper) > 0 {
		problems = append(problems, "Additional Applications: 不合规的附加应用 "+quoteAll(improper))
	}

	return problems
}

// CheckSource 检查 Source；无问题时返回空串。
//
// Source 必须是完整且已规整的 URL（保留 scheme 与查询串，不得经过网页存档）。
func CheckSource(r *meta.Record) string {
	src, _ := r.Get(meta.Source).(string)
	if src == "" {
		return "缺失"
	}
	if !urlnorm.IsNormalized(src, true) {
		return "格式错误，应使用完整规范的 URL"
	}
	return ""
}

// launchOK 判断主启动命令是否合规：带引号或含空格的命令行原样接受，否则必须是规整的 http URL。
func launchOK(cmd string) bool {
	if strings.HasPrefix(cmd, `"`) || strings.Contains(cmd, " ") {
		return true
	}
	return urlnorm.IsNormalized(cmd, false)
}

// list 把多值字段归一化为列表：字符串按 "; " 拆分，nil 视为一个空值。
func list(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case string:
		return strings.Split(x, "; ")
	case nil:
		return []string{""}
	default:
		return []string{fmt.Sprint(x)}
	}
}

// consume 逐个匹配 values：命中的词从副本中移除，因此重复值与未知值一样会被返回。
func consume(values []string, allowed meta.Set) []string {
	left := make(map[string]struct{}, len(allowed))
	for k := range allowed {
		left[k] = struct{}{}
	}
	var bad []string
	for _, v := range values {
		if _, ok := left[v]; ok {
			delete(left, v)
			continue
		}
		bad = append(bad, v)
	}
	return bad
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func quoteAll(vs []string) string {
	q := make([]string, len(vs))
	for i, v := range vs {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}
