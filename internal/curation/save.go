package curation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/fpcurate/internal/app/planner"
	"github.com/John-Robertt/fpcurate/internal/fetch"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
	"github.com/John-Robertt/fpcurate/internal/meta"
	"github.com/John-Robertt/fpcurate/internal/validate"
)

// Items 选择 Save 写出哪些内容，可按位组合。
type Items int

const (
	Content Items = 1 << iota
	SS
	Logo
	Meta

	Images     = Logo | SS
	Everything = Meta | Logo | SS | Content
)

// 落盘文件名。
const (
	LogoFile   = "logo.png"
	SSFile     = "ss.png"
	ContentDir = "content"
)

// InvalidMetadataError 表示校验未通过，Problems 是全部问题。
type InvalidMetadataError struct {
	Problems []string
}

func (e *InvalidMetadataError) Error() string {
	return "元数据无效：\n  " + strings.Join(e.Problems, "\n  ")
}

// IsInvalidMetadata 判断 err 链上是否有 InvalidMetadataError。
func IsInvalidMetadata(err error) bool {
	var e *InvalidMetadataError
	return errors.As(err, &e)
}

// Env 是 Save 依赖的外部环境。
//
// 约束：
//   - Root 是落盘基准目录；为空时取进程当前工作目录。Save 只拼接绝对路径，不切换工作目录
//   - Fetch 在需要解析页面或下载资源时不能为空
//   - Vocab 只在严格校验时使用
type Env struct {
	Root   string
	Fetch  *fetch.Client
	Vocab  validate.Vocabulary
	Logger *slog.Logger
}

func (e Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e Env) root() (string, error) {
	if e.Root != "" {
		return filepath.Abs(e.Root)
	}
	return os.Getwd()
}

// SaveOptions 控制 Save 的各阶段。Items 为 0 时等同 Everything。
type SaveOptions struct {
	UseTitle  bool
	Overwrite bool
	Parse     bool
	Validate  validate.Mode
	Items     Items
}

// Save 依次执行：解析页面（Parse=true）-> 校验（Validate>0）-> 分配目录 -> 写入所选内容，
// 返回 curation 目录的绝对路径。
//
// 失败语义：
//   - 解析器返回的错误原样向上返回
//   - 校验不通过返回 *InvalidMetadataError，此时不会创建目录
//   - logo/截图/内容文件的下载失败只记录日志
//   - ctx 取消时在当前步骤结束后返回 ctx.Err()
func (c *Curation) Save(ctx context.Context, env Env, opts SaveOptions) (string, error) {
	log := env.log().With("id", c.ID)
	items := opts.Items
	if items == 0 {
		items = Everything
	}

	if opts.Parse {
		doc, err := c.document(ctx, env)
		if err != nil {
			return "", err
		}
		if err := c.parser().Parse(ctx, c, doc); err != nil {
			return "", err
		}
		log.Debug("已解析页面", "source", c.Meta.String(meta.Source))
	}

	if opts.Validate > validate.Skip {
		problems := validate.Validate(ctx, c.Meta, opts.Validate == validate.Rigid, env.Vocab)
		// 词表拉取途中被取消时词表可能为空，此时的问题列表不可信。
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if len(problems) > 0 {
			return "", &InvalidMetadataError{Problems: problems}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	root, err := env.root()
	if err != nil {
		return "", err
	}
	name := planner.FolderName(c.Meta.String(meta.Title), opts.UseTitle, c.ID)
	folder, err := planner.AllocFolder(root, name, opts.Overwrite)
	if err != nil {
		return "", err
	}
	if _, err := fsx.MakeDir(folder, true); err != nil {
		return "", err
	}
	log = log.With("folder", folder)

	if items&Meta != 0 {
		b, err := c.Meta.Marshal()
		if err != nil {
			return folder, err
		}
		if err := fsx.WriteFile(folder, meta.FileName, b); err != nil {
			return folder, err
		}
	}

	for _, img := range []struct {
		flag Items
		url  string
		name string
	}{{Logo, c.Logo, LogoFile}, {SS, c.SS, SSFile}} {
		if items&img.flag == 0 || img.url == "" {
			continue
		}
		if err := c.saveImage(ctx, env, img.url, folder, img.name); err != nil {
			if ctx.Err() != nil {
				return folder, ctx.Err()
			}
			log.Warn("下载图片失败，已跳过", "file", img.name, "url", img.url, "err", err)
		}
	}

	if items&Content != 0 {
		dir := filepath.Join(folder, ContentDir)
		if _, err := fsx.MakeDir(dir, true); err != nil {
			return folder, err
		}
		if err := c.getFiles(ctx, env, dir); err != nil {
			if ctx.Err() != nil {
				return folder, ctx.Err()
			}
			log.Warn("获取内容文件失败", "err", err)
		}
	}

	log.Info("已保存", "title", c.Meta.String(meta.Title))
	return folder, nil
}

func (c *Curation) document(ctx context.Context, env Env) (*goquery.Document, error) {
	if f, ok := c.parser().(DocumentFetcher); ok {
		return f.FetchDocument(ctx, c, env)
	}
	src := c.Meta.String(meta.Source)
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	if env.Fetch == nil {
		return nil, errors.New("解析页面需要 fetch client")
	}
	return env.Fetch.Document(ctx, src)
}

func (c *Curation) saveImage(ctx context.Context, env Env, url, dir, name string) error {
	if s, ok := c.parser().(ImageSaver); ok {
		return s.SaveImage(ctx, c, env, url, dir, name)
	}
	if env.Fetch == nil {
		return errors.New("下载图片需要 fetch client")
	}
	_, err := env.Fetch.DownloadImage(ctx, url, dir, name)
	return err
}

func (c *Curation) getFiles(ctx context.Context, env Env, dir string) error {
	if g, ok := c.parser().(FileGetter); ok {
		return g.GetFiles(ctx, c, env, dir)
	}
	return DownloadLaunchFiles(ctx, c, env, dir)
}

// LaunchFiles 返回需要下载的启动文件：非保留附加应用的启动命令在前，主启动命令在后。
func LaunchFiles(c *Curation) []string {
	var files []string
	for _, e := range c.Meta.Apps() {
		if meta.IsReserved(e.Heading) || e.App == nil || e.App.LaunchCommand == "" {
			continue
		}
		files = append(files, e.App.LaunchCommand)
	}
	if cmd := c.Meta.String(meta.LaunchCommand); cmd != "" {
		files = append(files, cmd)
	}
	return files
}

// DownloadLaunchFiles 是默认的内容获取方式：按站点目录结构把 LaunchFiles 下载到 dir，
// 单个文件失败只记录日志。
func DownloadLaunchFiles(ctx context.Context, c *Curation, env Env, dir string) error {
	files := LaunchFiles(c)
	if len(files) == 0 {
		return nil
	}
	if env.Fetch == nil {
		return errors.New("下载内容文件需要 fetch client")
	}
	failures, err := env.Fetch.DownloadAll(ctx, files, dir, fetch.MirrorOptions{})
	for _, f := range failures {
		env.log().Warn("下载内容文件失败，已跳过", "url", f.URL, "err", f.Err)
	}
	if err != nil {
		return fmt.Errorf("下载内容文件：%w", err)
	}
	return nil
}
