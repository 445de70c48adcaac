// Package vocab 提供严格校验所需的平台名与标签名词表。
//
// 词表来自 Flashpoint datahub（wiki）页面，按进程缓存：首次需要时抓取，
// 两个集合都非空后不再刷新；任一集合仍为空时下次需要会再次抓取。
package vocab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/fpcurate/internal/fetch"
	"github.com/John-Robertt/fpcurate/internal/meta"
)

const (
	// DatahubURL 是词表页面的前缀，后接分类名（Platforms、Tags 等）。
	DatahubURL = "https://flashpointarchive.org/datahub/"
	// WaybackURL 是回退到网页存档时使用的前缀。
	WaybackURL = "https://web.archive.org/web/"

	CategoryPlatforms = "Platforms"
	CategoryTags      = "Tags"

	maxAttempts = 4
)

// 这些标题是标签页里的分组名，不是标签。
var tagSectionHeadings = map[string]struct{}{
	"Themes":           {},
	"Content Warnings": {},
	"Franchises":       {},
	"Game Engines":     {},
}

// FetchFunc 按分类抓取名称列表；失败时返回空列表，不返回错误。
type FetchFunc func(ctx context.Context, category string) []string

// Provider 是进程级的词表缓存，并发安全。
type Provider struct {
	Fetch FetchFunc

	mu        sync.Mutex
	platforms meta.Set
	tags      meta.Set
}

// NewProvider 返回以 fetch 为数据源的 Provider。
func NewProvider(fetch FetchFunc) *Provider {
	return &Provider{Fetch: fetch}
}

// Platforms 返回平台名集合，必要时先刷新。
func (p *Provider) Platforms(ctx context.Context) meta.Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked(ctx)
	return p.platforms
}

// Tags 返回标签名集合，必要时先刷新。
func (p *Provider) Tags(ctx context.Context) meta.Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked(ctx)
	return p.tags
}

// Sets 同时返回平台名与标签名集合，必要时先刷新一次。
func (p *Provider) Sets(ctx context.Context) (platforms, tags meta.Set) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked(ctx)
	return p.platforms, p.tags
}

// Refresh 在任一集合为空时重新抓取两个集合。
func (p *Provider) Refresh(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked(ctx)
}

func (p *Provider) refreshLocked(ctx context.Context) {
	if len(p.platforms) > 0 && len(p.tags) > 0 {
		return
	}
	if p.Fetch == nil {
		return
	}
	p.platforms = toSet(p.Fetch(ctx, CategoryPlatforms))
	p.tags = toSet(p.Fetch(ctx, CategoryTags))
}

func toSet(names []string) meta.Set {
	s := make(meta.Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Wiki 从 datahub 抓取词表。
type Wiki struct {
	Client *fetch.Client
	Logger *slog.Logger

	// BaseURL 为空时使用 DatahubURL；Wayback 为空时使用 WaybackURL。测试里指向本地服务。
	BaseURL string
	Wayback string
	// Now 为空时使用 time.Now。
	Now func() time.Time
}

// Fetch 满足 FetchFunc：失败只记录日志并返回空列表。
func (w *Wiki) Fetch(ctx context.Context, category string) []string {
	names, err := w.FetchCategory(ctx, category)
	if err != nil {
		w.log().Warn("抓取词表失败", "category", category, "err", err)
		return nil
	}
	return names
}

// FetchCategory 抓取分类页面并解析出名称列表。
//
// 最多尝试 4 次：首次直连 datahub；之后改走网页存档，时间戳从今天开始，每次失败再往前推 2 天。
// 返回 Cloudflare 错误页（#cf-error-details）也算失败。
func (w *Wiki) FetchCategory(ctx context.Context, category string) ([]string, error) {
	if w.Client == nil {
		return nil, fmt.Errorf("抓取词表 %s：client 不能为空", category)
	}
	base := w.BaseURL
	if base == "" {
		base = DatahubURL
	}
	wayback := w.Wayback
	if wayback == "" {
		wayback = WaybackURL
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	pageURL := base + category
	target := pageURL
	var (
		stamp   time.Time
		lastErr error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := w.Client.Document(ctx, target)
		if err == nil && doc.Find("#cf-error-details").Length() == 0 {
			w.log().Debug("已抓取词表页面", "category", category, "url", target)
			return ParseCategory(doc, category), nil
		}
		if err == nil {
			err = fmt.Errorf("%s 返回了 Cloudflare 错误页", target)
		}
		lastErr = err

		if stamp.IsZero() {
			stamp = now()
		} else {
			stamp = stamp.AddDate(0, 0, -2)
		}
		target = wayback + stamp.Format("20060102") + "id_/" + pageURL
	}
	return nil, fmt.Errorf("抓取词表 %s 失败（已尝试 %d 次）：%w", category, maxAttempts, lastErr)
}

// ParseCategory 从 datahub 页面解析名称：每个 table.wikitable 表头之后的行，
// 平台页取第 2 列，其它页取第 1 列；标签页另外收集 span.mw-headline 中的分组标签。
func ParseCategory(doc *goquery.Document, category string) []string {
	col := 0
	if category == CategoryPlatforms {
		col = 1
	}

	var names []string
	doc.Find("table.wikitable").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cell := row.Find("td").Eq(col)
			if cell.Length() == 0 {
				return
			}
			if name := strings.TrimSpace(cell.Text()); name != "" {
				names = append(names, name)
			}
		})
	})

	if category == CategoryTags {
		doc.Find("span.mw-headline").Each(func(_ int, s *goquery.Selection) {
			t := s.Text()
			if _, skip := tagSectionHeadings[t]; skip {
				return
			}
			names = append(names, t)
		})
	}
	return names
}

func (w *Wiki) log() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}

// NewWikiProvider 组装 Wiki 数据源与缓存。
func NewWikiProvider(c *http.Client, logger *slog.Logger) *Provider {
	w := &Wiki{Client: &fetch.Client{HTTP: c, Logger: logger}, Logger: logger}
	return NewProvider(w.Fetch)
}
