// Package dateparse 把网页上各种写法的日期解析为 YYYY[-MM[-DD]]。
//
// 格式串是正则，可用三个宏：<y> 年（4 位数字）、<m> 月（1-3 位数字或英文月份名）、
// <d> 日（1-3 位数字）。匹配不区分大小写，也不校验日期是否真实存在。
package dateparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidFormat = errors.New("日期格式串无效：必须包含年份，且有日必须有月")

var macros = strings.NewReplacer(
	"<y>", `(?P<year>\d{4})`,
	"<m>", `(?P<month>\d{1,3}|[A-Za-z]+)`,
	"<d>", `(?P<day>\d{1,3})`,
)

var months = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04", "MAY": "05", "JUN": "06",
	"JUL": "07", "AUG": "08", "SEP": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// 常用格式。
var (
	// US 解析 "March 5th, 2016"、"3/5/2016"、"March 2016" 一类写法。
	US = MustNew(`<m>(\s*.??<d>\w*)?,?\s*.??<y>`)
	// UK 解析 "5th of March, 2016"、"5/3/2016"、"March 2016" 一类写法。
	UK = MustNew(`(<d>\w*(\s*of)?\s*.??)?<m>,?\s*.??<y>`)
	// ISO 解析 "2016 March 5th"、"2016-03-05" 一类写法。
	ISO = MustNew(`<y>(\s*.??<m>)?(\s*.??<d>\w*)?`)
)

// Parser 是编译好的日期格式。
//
// Year/Month/Day 非空时分别用于把匹配到的片段转换成数字串；Month 为空时使用 MonthNumber。
type Parser struct {
	Year  func(string) string
	Month func(string) string
	Day   func(string) string

	re *regexp.Regexp
}

// New 编译 format。format 必须含年份分组；含日分组时必须同时含月分组。
func New(format string) (*Parser, error) {
	text := macros.Replace(format)
	if !strings.Contains(text, "(?P<year>") ||
		(strings.Contains(text, "(?P<day>") && !strings.Contains(text, "(?P<month>")) {
		return nil, ErrInvalidFormat
	}
	re, err := regexp.Compile("(?i)" + text)
	if err != nil {
		return nil, fmt.Errorf("编译日期格式 %q 失败：%w", format, err)
	}
	return &Parser{re: re}, nil
}

// MustNew 与 New 相同，但格式无效时 panic；用于包级常量。
func MustNew(format string) *Parser {
	p, err := New(format)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse 在 s 中查找第一个符合格式的日期并返回 ISO 形式（年 4 位，月日 2 位，不足补零）。
func (p *Parser) Parse(s string) (string, error) {
	m := p.re.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("未找到日期：%q", s)
	}
	group := func(name string) string {
		if i := p.re.SubexpIndex(name); i >= 0 {
			return m[i]
		}
		return ""
	}

	y, mo, d := group("year"), group("month"), group("day")
	if y == "" {
		return "", fmt.Errorf("未找到年份：%q", s)
	}
	if d != "" && mo == "" {
		return "", fmt.Errorf("有日无月：%q", s)
	}

	out := zfill(apply(p.Year, y), 4)
	if mo != "" {
		conv := p.Month
		if conv == nil {
			conv = MonthNumber
		}
		out += "-" + zfill(conv(mo), 2)
	}
	if d != "" {
		out += "-" + zfill(apply(p.Day, d), 2)
	}
	return out, nil
}

// MonthNumber 把英文月份名（按前三个字母，不区分大小写）转换为两位数字；
// 少于 3 个字符或无法识别时原样返回。
func MonthNumber(s string) string {
	if len(s) < 3 {
		return s
	}
	if n, ok := months[strings.ToUpper(s[:3])]; ok {
		return n
	}
	return s
}

func apply(f func(string) string, s string) string {
	if f == nil {
		return s
	}
	return f(s)
}

func zfill(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
