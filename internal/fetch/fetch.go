// Package fetch 负责页面读取与资源下载：页面解析为 goquery 文档，文件按原样落盘，
// 图片统一转码为 PNG。
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/fpcurate/internal/infra/cache"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
	"github.com/John-Robertt/fpcurate/internal/infra/imgx"
	"github.com/John-Robertt/fpcurate/internal/urlnorm"
)

// HTTPStatusError 表示服务器返回了 4xx/5xx。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d：%s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d：%s location=%s", e.StatusCode, e.URL, loc)
}

// Client 封装一次运行共用的抓取策略。
//
// 约束：
//   - 重试/代理/UA 由 HTTP（通常来自 httpx.NewClient）负责，这里不再重试
//   - Pages 非空时 Document 优先读缓存，成功抓取后写回缓存
//   - Spoof=true 时请求带 Referer（值为请求地址本身），用于绕过简单的防盗链
type Client struct {
	HTTP   *http.Client
	Pages  *cache.Store
	Spoof  bool
	Logger *slog.Logger
}

func (c *Client) log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Read 读取 url 的原始内容；url 会先按 urlnorm.Normalize(u, true, true, true) 规整。
func (c *Client) Read(ctx context.Context, rawURL string) ([]byte, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("http client 不能为空")
	}
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("url 不能为空")
	}
	u := urlnorm.Normalize(rawURL, true, true, true)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.Spoof {
		req.Header.Set("Referer", u)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return b, nil
}

// Document 读取页面并解析为 goquery 文档；url 为空白时返回 (nil, nil)。
func (c *Client) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, nil
	}

	var (
		body []byte
		hit  bool
	)
	if c.Pages != nil {
		b, ok, err := c.Pages.Get(rawURL)
		if err != nil {
			c.log().Warn("读取页面缓存失败", "url", rawURL, "err", err)
		}
		body, hit = b, ok
	}
	if !hit {
		b, err := c.Read(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		body = b
		if c.Pages != nil {
			if err := c.Pages.Put(rawURL, body); err != nil && !errors.Is(err, cache.ErrReadOnly) {
				c.log().Warn("写入页面缓存失败", "url", rawURL, "err", err)
			}
		}
	}
	c.log().Debug("页面已就绪", "url", rawURL, "cached", hit, "bytes", len(body))

	if !utf8.Valid(body) {
		body = bytes.ToValidUTF8(body, []byte("�"))
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// Download 把 url 下载到 dir/name；name 为空时取 url 路径的最后一段。返回落盘路径。
func (c *Client) Download(ctx context.Context, rawURL, dir, name string) (string, error) {
	if name == "" {
		name = urlnorm.FileName(rawURL)
	}
	b, err := c.Read(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if _, err := fsx.MakeDir(dir, false); err != nil {
		return "", err
	}
	if err := fsx.WriteFile(dir, name, b); err != nil {
		return "", err
	}
	c.log().Debug("已下载", "url", rawURL, "dir", dir, "name", name)
	return filepath.Join(dir, name), nil
}

// DownloadImage 下载图片并转码为 PNG 写入 dir/name；name 为空时由 url 推导（扩展名换成 .png）。
func (c *Client) DownloadImage(ctx context.Context, rawURL, dir, name string) (string, error) {
	if name == "" {
		name = urlnorm.ImageName(rawURL)
	}
	b, err := c.Read(ctx, rawURL)
	if err != nil {
		return "", err
	}
	png, err := imgx.ToPNG(b)
	if err != nil {
		return "", fmt.Errorf("图片转码失败：%s：%w", rawURL, err)
	}
	if _, err := fsx.MakeDir(dir, false); err != nil {
		return "", err
	}
	if err := fsx.WriteFile(dir, name, png); err != nil {
		return "", err
	}
	c.log().Debug("已下载图片", "url", rawURL, "dir", dir, "name", name)
	return filepath.Join(dir, name), nil
}

// MirrorOptions 控制 DownloadAll 的落盘路径推导，见 urlnorm.MirrorPath。
type MirrorOptions struct {
	PreserveArchive bool
	KeepQuery       bool
}

// Failure 是单个下载失败的 url 与原因。
type Failure struct {
	URL string
	Err error
}

// DownloadAll 按站点目录结构把 urls 逐个下载到 dir 下。
//
// 单个 url 失败只记录到返回的 failures 中，不影响其它 url；
// 只有 dir 无法创建或 ctx 被取消时返回 error。
func (c *Client) DownloadAll(ctx context.Context, urls []string, dir string, opts MirrorOptions) ([]Failure, error) {
	if _, err := fsx.MakeDir(dir, false); err != nil {
		return nil, err
	}

	var failures []Failure
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := c.mirror(ctx, u, dir, opts); err != nil {
			if ctx.Err() != nil {
				return failures, ctx.Err()
			}
			c.log().Warn("下载失败，已跳过", "url", u, "err", err)
			failures = append(failures, Failure{URL: u, Err: err})
		}
	}
	return failures, nil
}

func (c *Client) mirror(ctx context.Context, u, dir string, opts MirrorOptions) error {
	fetchURL, rel := urlnorm.MirrorPath(u, opts.PreserveArchive, opts.KeepQuery)
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return &fsx.InvalidCharacterError{Path: rel}
	}
	b, err := c.Read(ctx, fetchURL)
	if err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.FromSlash(rel))
	if _, err := fsx.MakeDir(filepath.Dir(dst), false); err != nil {
		return err
	}
	if err := fsx.WriteFile(filepath.Dir(dst), filepath.Base(dst), b); err != nil {
		return err
	}
	c.log().Debug("已下载", "url", fetchURL, "path", rel)
	return nil
}
