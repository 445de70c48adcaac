package curation

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Parser 是站点解析策略：从页面文档中提取元数据，写入 c。
//
// doc 可能为 nil（Source 为空时）。返回的 error 会原样从 Save 返回。
type Parser interface {
	Parse(ctx context.Context, c *Curation, doc *goquery.Document) error
}

// DocumentFetcher 可选：替换默认的页面获取（按 Source 抓取），例如需要限速或登录的站点。
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, c *Curation, env Env) (*goquery.Document, error)
}

// FileGetter 可选：替换默认的内容文件获取（DownloadLaunchFiles）。dir 是已创建的 content 目录。
type FileGetter interface {
	GetFiles(ctx context.Context, c *Curation, env Env, dir string) error
}

// ImageSaver 可选：替换默认的 logo/截图下载（转码为 PNG 写入 dir/name）。
type ImageSaver interface {
	SaveImage(ctx context.Context, c *Curation, env Env, url, dir, name string) error
}

// Noop 不做任何解析，元数据完全来自构造参数。
type Noop struct{}

func (Noop) Parse(context.Context, *Curation, *goquery.Document) error { return nil }

// ParserFunc 把普通函数适配为 Parser。
type ParserFunc func(ctx context.Context, c *Curation, doc *goquery.Document) error

func (f ParserFunc) Parse(ctx context.Context, c *Curation, doc *goquery.Document) error {
	return f(ctx, c, doc)
}
