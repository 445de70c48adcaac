// Package newgrounds 解析 Newgrounds 作品页（/portal/view/<id>）。
package newgrounds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/dateparse"
	"github.com/John-Robertt/fpcurate/internal/urlnorm"
)

const Publisher = "Newgrounds"

// swf 地址藏在页面脚本的 embedController([{...,"url":"..."},callback:...]) 里。
var embedRE = regexp.MustCompile(`embedController\(\[(.+?),callback:`)

// Site 实现 Newgrounds 作品页的解析。
type Site struct{}

func (Site) Name() string    { return "newgrounds" }
func (Site) Pattern() string { return `newgrounds\.com/portal/view/\d+` }

// Parse 写入标题、作者、发布日期、简介、logo 与 swf 启动地址。
// 找不到 swf 时返回错误（作品不是 Flash 或页面被拦截）。
func (Site) Parse(ctx context.Context, c *curation.Curation, doc *goquery.Document) error {
	if doc == nil {
		return errors.New("newgrounds：页面为空")
	}

	html, err := doc.Html()
	if err != nil {
		return err
	}
	swf, err := EmbedURL(html)
	if err != nil {
		return err
	}

	kv := map[string]any{
		"source": urlnorm.Normalize(c.String("url"), false, true, true),
		"pub":    Publisher,
		"cmd":    urlnorm.Normalize(swf, false, false, false),
	}
	if title := ogContent(doc, "og:title"); title != "" {
		kv["title"] = title
	} else if title := normSpace(doc.Find("title").First().Text()); title != "" {
		kv["title"] = title
	}
	if authors := Authors(doc); len(authors) > 0 {
		kv["dev"] = strings.Join(authors, "; ")
	}
	if d := uploaded(doc); d != "" {
		if date, err := dateparse.US.Parse(d); err == nil {
			kv["date"] = date
		}
	}
	if desc := strings.TrimSpace(doc.Find("#author_comments").First().Text()); desc != "" {
		kv["desc"] = desc
	} else if desc := ogContent(doc, "og:description"); desc != "" {
		kv["desc"] = desc
	}
	c.SetAll(kv)

	if logo := ogContent(doc, "og:image"); logo != "" {
		c.Logo = logo
	}
	return nil
}

// EmbedURL 从页面源码中取出 swf 地址（原样，含转义斜杠）。
func EmbedURL(html string) (string, error) {
	m := embedRE.FindStringSubmatch(html)
	if m == nil {
		return "", errors.New("newgrounds：未找到 embedController（疑似非 Flash 作品或被拦截的页面）")
	}
	var v struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(m[1]+"}"), &v); err != nil {
		return "", fmt.Errorf("newgrounds：解析 embedController 失败：%w", err)
	}
	if strings.TrimSpace(v.URL) == "" {
		return "", errors.New("newgrounds：embedController 中没有 url")
	}
	return v.URL, nil
}

// Authors 返回作者区块里的用户名，按页面顺序去重。
func Authors(doc *goquery.Document) []string {
	var out []string
	seen := map[string]bool{}
	doc.Find(".item-user .item-details-main h4 a").Each(func(_ int, s *goquery.Selection) {
		name := normSpace(s.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	})
	return out
}

func uploaded(doc *goquery.Document) string {
	var out string
	doc.Find("dl.sidestats dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if !strings.EqualFold(normSpace(dt.Text()), "Uploaded") {
			return true
		}
		out = normSpace(dt.NextFiltered("dd").First().Text())
		return false
	})
	return out
}

func ogContent(doc *goquery.Document, property string) string {
	v, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return normSpace(v)
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
