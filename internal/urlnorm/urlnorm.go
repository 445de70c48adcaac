// Package urlnorm 把各种写法的 URL 规整为统一形式，并推导下载时的本地镜像路径。
package urlnorm

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

var (
	waybackRE  = regexp.MustCompile(`^[^/\\.]*(:|/+)web\.archive\.org/web/(\d+|\*)([a-zA-Z]+_)*/`)
	schemeRE   = regexp.MustCompile(`^[^/\\.]*(:|/+)`)
	properRE   = regexp.MustCompile(`^[a-zA-Z]+://[^/]`)
	extRE      = regexp.MustCompile(`\.[^/\\]+$`)
	httpScheme = "http://"
)

// Normalize 规整 url：
//   - 把转义斜杠 `\/` 还原为 `/` 并去掉首尾空白
//   - keepQuery=false 时去掉 `?` 之后的部分
//   - preserveArchive=false 时去掉 web.archive.org 前缀，还原到原域名
//   - keepScheme=true 时只修正格式错误的 scheme，否则一律改为 http://
//   - 没有 scheme 时补 http://
//
// Normalize(u, ...) == u 即表示 u 已是规整形式，校验规则依赖这一点。
func Normalize(u string, preserveArchive, keepQuery, keepScheme bool) string {
	r := strings.TrimSpace(strings.ReplaceAll(u, `\/`, "/"))
	if !keepQuery {
		if i := strings.IndexByte(r, '?'); i >= 0 {
			r = r[:i]
		}
	}
	if !preserveArchive {
		r = waybackRE.ReplaceAllLiteralString(r, "")
	}
	if schemeRE.MatchString(r) {
		if !keepScheme || !properRE.MatchString(r) {
			r = schemeRE.ReplaceAllLiteralString(r, httpScheme)
		}
	} else {
		r = httpScheme + r
	}
	return r
}

// IsNormalized 判断 u 是否已是 Normalize(u, false, true, keepScheme) 的结果。
func IsNormalized(u string, keepScheme bool) bool {
	return Normalize(u, false, true, keepScheme) == u
}

// MirrorPath 计算批量下载时 url 对应的请求地址与相对落盘路径。
//
// 落盘路径保留站点的域名/目录结构：以 / 结尾补 index.html，只有域名时补
// /index.html，非法字符替换为 "_"。preserveArchive=false 时 web.archive.org
// 上的文件落到原域名目录下；keepQuery=true 时把查询串并入文件名。
func MirrorPath(u string, preserveArchive, keepQuery bool) (fetchURL, rel string) {
	fetchURL = Normalize(u, true, true, true)
	raw := fetchURL
	if !preserveArchive {
		raw = Normalize(u, false, true, true)
	}
	raw = schemeRE.ReplaceAllLiteralString(raw, "")

	query := ""
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i:]
		raw = raw[:i]
	}
	switch {
	case strings.HasSuffix(raw, "/"):
		raw += "index.html"
	case !strings.Contains(raw, "/"):
		raw += "/index.html"
	}
	if keepQuery && query != "" {
		raw += query
	}

	raw = strings.ReplaceAll(raw, "://", ".")
	return fetchURL, fsx.ReplaceInvalidPath(raw, "_")
}

// FileName 推导单文件下载的默认文件名：取路径最后一段，没有则为 index.html。
func FileName(u string) string {
	raw := waybackRE.ReplaceAllLiteralString(Normalize(u, true, true, true), "")
	raw = schemeRE.ReplaceAllLiteralString(raw, "")
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if strings.HasSuffix(raw, "/") || !strings.Contains(raw, "/") {
		return "index.html"
	}
	return raw[strings.LastIndexByte(raw, '/')+1:]
}

// ImageName 与 FileName 相同，但扩展名统一为 .png。
func ImageName(u string) string {
	name := FileName(u)
	if name == "index.html" {
		return "index.png"
	}
	if extRE.MatchString(name) {
		return extRE.ReplaceAllLiteralString(name, ".png")
	}
	return name + ".png"
}
