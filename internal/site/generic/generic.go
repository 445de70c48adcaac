// Package generic 是兜底解析器：只读通用的 <title>/Open Graph 标签与页面里第一个 swf 嵌入。
package generic

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/urlnorm"
)

type Site struct{}

func (Site) Name() string    { return "generic" }
func (Site) Pattern() string { return `.` }

// Parse 写入标题、简介、logo 与启动地址。页面上没有 swf 时不设置启动地址，交给校验处理。
func (Site) Parse(ctx context.Context, c *curation.Curation, doc *goquery.Document) error {
	if doc == nil {
		return errors.New("generic：页面为空")
	}
	page := c.String("url")

	kv := map[string]any{"source": urlnorm.Normalize(page, false, true, true)}
	if title := meta(doc, "og:title"); title != "" {
		kv["title"] = title
	} else if title := normSpace(doc.Find("title").First().Text()); title != "" {
		kv["title"] = title
	}
	if desc := meta(doc, "og:description"); desc != "" {
		kv["desc"] = desc
	} else if desc := meta(doc, "description"); desc != "" {
		kv["desc"] = desc
	}
	if swf := FirstSWF(doc); swf != "" {
		kv["cmd"] = urlnorm.Normalize(resolve(page, swf), false, true, false)
	}
	c.SetAll(kv)

	if img := meta(doc, "og:image"); img != "" {
		c.Logo = resolve(page, img)
	}
	return nil
}

// FirstSWF 按 embed[src]、object[data]、<param name=movie> 的顺序返回第一个 .swf 地址（未解析相对路径）。
func FirstSWF(doc *goquery.Document) string {
	var out string
	doc.Find("embed[src], object[data], object param").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v string
		switch goquery.NodeName(s) {
		case "embed":
			v, _ = s.Attr("src")
		case "object":
			v, _ = s.Attr("data")
		case "param":
			if name, _ := s.Attr("name"); !strings.EqualFold(name, "movie") && !strings.EqualFold(name, "src") {
				return true
			}
			v, _ = s.Attr("value")
		}
		if isSWF(v) {
			out = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return out
}

func isSWF(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		v = v[:i]
	}
	return strings.HasSuffix(v, ".swf")
}

func resolve(base, ref string) string {
	b, err := url.Parse(urlnorm.Normalize(base, true, true, true))
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func meta(doc *goquery.Document, key string) string {
	v, _ := doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).First().Attr("content")
	return normSpace(v)
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
