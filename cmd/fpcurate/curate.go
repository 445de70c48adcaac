package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/fpcurate/internal/app/batch"
	"github.com/John-Robertt/fpcurate/internal/config"
	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/domain"
	"github.com/John-Robertt/fpcurate/internal/fetch"
	"github.com/John-Robertt/fpcurate/internal/infra/cache"
	"github.com/John-Robertt/fpcurate/internal/infra/httpx"
	"github.com/John-Robertt/fpcurate/internal/site"
	"github.com/John-Robertt/fpcurate/internal/validate"
	"github.com/John-Robertt/fpcurate/internal/vocab"
)

// cacheDirName 是页面缓存目录（位于输出目录下）。
const cacheDirName = ".fpcurate-cache"

func newCurateCommand(app *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curate <url|条目文件>...",
		Short: "抓取页面并批量生成 curation",
		Long: `抓取每个 URL 对应的页面，解析元数据并在输出目录生成 curation 文件夹。

参数可以是 URL，也可以是条目文件：
  .yaml/.yml  列表，每项为 URL 字符串或 {url, args}
  其他         每行一个 URL，# 开头为注释

不指定 --site 时按 URL 路由到第一个匹配的站点。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurate(cmd, app, args)
		},
	}

	f := cmd.Flags()
	f.String("site", "", "固定使用的站点（"+strings.Join(site.Default().Names(), "|")+"）")
	f.Bool("use-title", false, "用标题作为文件夹名（否则用 id）")
	f.Bool("overwrite", false, "与已有文件夹合并而不是另起新名")
	f.Bool("save", false, "记录进度，中断后重跑同一列表可续跑")
	f.Bool("ignore-errors", false, "出错时记录并继续，而不是中止")
	f.String("validate", "", "校验模式：skip|flexible|rigid（或 0|1|2），默认 flexible")
	f.Bool("spoof", false, "请求时使用浏览器 User-Agent")
	f.Bool("page-cache", true, "缓存抓取过的页面（--page-cache=false 关闭）")
	f.String("shared", "", "共享配置文件名，例如 "+config.DefaultSharedName)
	f.StringSlice("shared-path", nil, "查找共享配置的目录，靠前的优先（默认当前目录）")
	return cmd
}

func runCurate(cmd *cobra.Command, app *commandContext, args []string) error {
	eff, err := app.load(cmd)
	if err != nil {
		app.emitReport(configErrorReport(err))
		return &exitError{code: exitUsage}
	}
	log, closer, err := app.logger(eff)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	defer closer.Close()

	cwd, err := app.workDir()
	if err != nil {
		return err
	}
	items, err := readItems(cwd, args)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	reg := site.Default()
	var chosen site.Site
	if eff.Site != "" {
		s, ok := reg.Get(eff.Site)
		if !ok {
			return &exitError{code: exitUsage, err: &config.Error{
				Code: config.ErrCodeInvalid,
				Path: "<cli>",
				Err:  fmt.Errorf("未知站点 %q（可选 %s）", eff.Site, strings.Join(reg.Names(), "|")),
			}}
		}
		chosen = s
	}

	shared, err := config.LoadShared(eff)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	hc, err := httpx.NewClient(eff.HTTP)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	var pages *cache.Store
	if eff.PageCache {
		pages, err = cache.New(filepath.Join(eff.Dir, cacheDirName), false)
		if err != nil {
			return err
		}
	}
	env := curation.Env{
		Root:   eff.Dir,
		Fetch:  &fetch.Client{HTTP: hc, Pages: pages, Spoof: eff.Spoof, Logger: log},
		Logger: log,
	}
	if eff.Validate == validate.Rigid {
		env.Vocab = vocab.NewWikiProvider(hc, log)
	}

	rec := &batch.Recorder{Dir: eff.Dir, Site: eff.Site}
	var obs batch.Observer = rec
	if w, ok := app.pickProgressWriter(); ok {
		ui := newProgressUI(w, eff)
		defer ui.Stop()
		obs = batch.Observers(rec, ui)
	}

	opts := batch.Options{
		UseTitle:     eff.UseTitle,
		Overwrite:    eff.Overwrite,
		Save:         eff.Save,
		IgnoreErrors: eff.IgnoreErrors,
		Validate:     eff.Validate,
		Config:       shared,
		Logger:       log,
		Observer:     obs,
	}

	var failures []batch.Failure
	if chosen != nil {
		failures, err = batch.Curate(cmd.Context(), items, chosen, opts, env)
	} else {
		failures, err = batch.CurateRegex(cmd.Context(), items, reg.Routes(), opts, env)
	}

	var pe *batch.PreconditionError
	if errors.As(err, &pe) {
		rec.Add(domain.ItemResult{
			Index:     -1,
			Status:    domain.StatusFailed,
			ErrorCode: domain.ErrCodePrecondition,
			ErrorMsg:  err.Error(),
		})
	}

	rr := rec.Report()
	if werr := writeReportFile(eff.Dir, rr); werr != nil {
		log.Warn("写入报告失败", "dir", eff.Dir, "err", werr)
	}
	app.emitReport(rr)
	app.emitRestoredFailures(rr, failures)

	var ie *batch.InterruptedError
	switch {
	case errors.As(err, &ie):
		return &exitError{code: exitInterrupted}
	case err != nil:
		return &exitError{code: exitFailed, err: err}
	case !rr.OK() || len(failures) > 0:
		return &exitError{code: exitFailed}
	}
	log.Info("批处理完成", "dir", eff.Dir, "elapsed", rr.FinishedAt.Sub(rr.StartedAt).Round(time.Millisecond))
	return nil
}

// configErrorReport 在配置无法加载时生成只含一条失败的报告，保持 stdout 输出契约。
func configErrorReport(err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Index:     -1,
			Status:    domain.StatusFailed,
			ErrorCode: domain.ErrCodeConfigInvalid,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

// emitRestoredFailures 输出从进度文件恢复、本次报告中没有的失败（仅 --ignore-errors 续跑时出现）。
func (c *commandContext) emitRestoredFailures(rr domain.RunReport, failures []batch.Failure) {
	seen := make(map[string]struct{}, len(rr.Items))
	for _, it := range rr.Items {
		seen[it.URL] = struct{}{}
	}
	var rows [][]string
	for _, f := range failures {
		if _, ok := seen[f.URL]; ok {
			continue
		}
		rows = append(rows, []string{f.URL, batch.ErrorCode(f.Err), truncate(fmt.Sprint(f.Err), 400)})
	}
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(c.stderr, "此前运行中记录的失败：")
	fmt.Fprint(c.stderr, renderTable([]string{"URL", "CODE", "MESSAGE"}, rows, nil))
}
