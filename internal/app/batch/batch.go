// Package batch 顺序处理一组条目：为每个条目构造 curation 并保存，
// 支持可续跑的进度文件与逐条错误隔离。
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"

	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/domain"
	"github.com/John-Robertt/fpcurate/internal/fetch"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
	"github.com/John-Robertt/fpcurate/internal/meta"
	"github.com/John-Robertt/fpcurate/internal/validate"
)

// Item 是一个待处理条目：页面地址加上传给 curation 的额外参数。
type Item struct {
	URL  string
	Args map[string]any
}

// URLs 把一组地址转换为不带额外参数的条目。
func URLs(urls ...string) []Item {
	items := make([]Item, len(urls))
	for i, u := range urls {
		items[i] = Item{URL: u}
	}
	return items
}

// Route 把匹配 Pattern（regexp 语法，在 URL 任意位置搜索）的条目交给 Parser。
type Route struct {
	Pattern string
	Parser  curation.Parser
}

// Options 控制一次批处理。
type Options struct {
	UseTitle     bool
	Overwrite    bool
	Save         bool
	IgnoreErrors bool
	Validate     validate.Mode

	// Config 是共享配置，只在全新开始时使用；续跑时沿用进度文件中的快照。
	Config map[string]string

	Logger   *slog.Logger
	Observer Observer
}

func (o Options) log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Failure 是一条被记录的失败：条目地址、错误与额外参数。
type Failure struct {
	URL  string
	Err  error
	Args map[string]any
}

// PreconditionError 表示输入不满足批处理的前置条件，此时不处理任何条目。
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return "前置条件不满足：" + e.Msg }

// InterruptedError 表示批处理被中断（ctx 取消）。进度文件保留，可续跑。
type InterruptedError struct {
	Index int
	URL   string
	Err   error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("批处理在第 %d 项（%s）被中断：%v", e.Index, e.URL, e.Err)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// Curate 用同一个 parser 依次处理 items。
//
// 返回值：
//   - IgnoreErrors=false：成功时返回 (nil, nil)；非校验类错误立即返回该错误
//   - IgnoreErrors=true：返回累计的失败（可能为空切片）
//   - 被中断时返回 *InterruptedError；IgnoreErrors=true 时同时返回已累计的失败（含被中断的条目）
//
// 校验未通过的条目总是被记录并跳过，不会中止批处理。
func Curate(ctx context.Context, items []Item, parser curation.Parser, opts Options, env curation.Env) ([]Failure, error) {
	if len(items) == 0 {
		return nil, &PreconditionError{Msg: "条目列表为空"}
	}
	if parser == nil {
		return nil, &PreconditionError{Msg: "未指定解析器"}
	}
	return run(ctx, items, func(Item) (curation.Parser, bool) { return parser, true }, opts, env)
}

// CurateRegex 对每个条目按 routes 顺序查找第一个匹配的路由，用其解析器处理；
// 没有路由匹配的条目静默跳过。Parser 为空或 Pattern 无法编译的路由会被忽略并记录警告。
func CurateRegex(ctx context.Context, items []Item, routes []Route, opts Options, env curation.Env) ([]Failure, error) {
	if len(items) == 0 {
		return nil, &PreconditionError{Msg: "条目列表为空"}
	}
	if len(routes) == 0 {
		return nil, &PreconditionError{Msg: "路由列表为空"}
	}

	type compiled struct {
		re     *regexp.Regexp
		parser curation.Parser
	}
	log := opts.log()
	valid := make([]compiled, 0, len(routes))
	for i, r := range routes {
		if r.Parser == nil {
			log.Warn("路由没有解析器，已忽略", "index", i, "pattern", r.Pattern)
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			log.Warn("路由正则无效，已忽略", "index", i, "pattern", r.Pattern, "err", err)
			continue
		}
		valid = append(valid, compiled{re: re, parser: r.Parser})
	}
	if len(valid) == 0 {
		return nil, &PreconditionError{Msg: "路由列表没有有效条目"}
	}
	log.Debug("有效路由", "valid", len(valid), "total", len(routes))

	return run(ctx, items, func(it Item) (curation.Parser, bool) {
		for _, r := range valid {
			if r.re.MatchString(it.URL) {
				return r.parser, true
			}
		}
		return nil, false
	}, opts, env)
}

func run(ctx context.Context, items []Item, pick func(Item) (curation.Parser, bool), opts Options, env curation.Env) ([]Failure, error) {
	log := opts.log()
	obs := opts.Observer
	if obs == nil {
		obs = multiObserver(nil)
	}

	dir, err := workDir(env.Root)
	if err != nil {
		return nil, err
	}
	env.Root = dir

	st := state{Config: opts.Config}
	var sum [32]byte
	if opts.Save {
		if sum, err = Hash(items); err != nil {
			return nil, err
		}
		lockPath := filepath.Join(dir, StateFile+".lock")
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("获取进度文件锁失败：%w", err)
		}
		if !ok {
			return nil, &PreconditionError{Msg: "另一个批处理正在使用 " + filepath.Join(dir, StateFile)}
		}
		defer func() { _ = lock.Unlock() }()

		loaded, found, err := readState(dir, sum)
		if err != nil {
			return nil, fmt.Errorf("读取进度文件失败：%w", err)
		}
		if found {
			st = loaded
			log.Info("找到进度文件，续跑", "next", st.Next, "failures", len(st.Failures))
		}
	}
	if st.Config == nil {
		st.Config = map[string]string{}
	}

	failures := make([]Failure, 0, len(st.Failures))
	for _, sf := range st.Failures {
		failures = append(failures, sf.failure())
	}
	record := func(f Failure) {
		failures = append(failures, f)
		st.Failures = append(st.Failures, saveFailure(f))
	}

	log.Info("开始批处理", "items", len(items), "start", st.Next, "dir", dir)
	obs.OnStart(len(items), st.Next)

	for ; st.Next < len(items); st.Next++ {
		i := st.Next
		it := items[i]
		if opts.Save {
			if err := writeState(dir, sum, st); err != nil {
				return nil, fmt.Errorf("写入进度文件失败：%w", err)
			}
		}

		started := time.Now()
		res := domain.ItemResult{Index: i, URL: it.URL}
		ilog := log.With("index", i, "url", it.URL)

		if err := ctx.Err(); err != nil {
			return interrupted(ctx, it, i, res, started, opts, obs, ilog, failures)
		}

		parser, ok := pick(it)
		if !ok {
			ilog.Debug("没有匹配的路由，跳过")
			res.Status = domain.StatusUnrouted
			obs.OnItemDone(res, time.Since(started))
			continue
		}

		kv := maps.Clone(it.Args)
		if kv == nil {
			kv = map[string]any{}
		}
		kv["url"] = it.URL
		c := curation.New(kv)
		c.Config = st.Config
		c.Parser = parser

		folder, err := c.Save(ctx, env, curation.SaveOptions{
			UseTitle:  opts.UseTitle,
			Overwrite: opts.Overwrite,
			Parse:     true,
			Validate:  opts.Validate,
		})
		res.Title = c.Meta.String(meta.Title)
		if folder != "" {
			if rel, e := filepath.Rel(dir, folder); e == nil {
				res.Folder = rel
			} else {
				res.Folder = folder
			}
		}

		switch {
		case err == nil:
			res.Status = domain.StatusProcessed
			obs.OnItemDone(res, time.Since(started))

		case ctx.Err() != nil:
			return interrupted(ctx, it, i, res, started, opts, obs, ilog, failures)

		case curation.IsInvalidMetadata(err):
			ilog.Warn("元数据无效，跳过", "err", err)
			record(Failure{URL: it.URL, Err: err, Args: it.Args})
			fillError(&res, domain.StatusSkipped, err)
			obs.OnItemDone(res, time.Since(started))

		case !opts.IgnoreErrors:
			fillError(&res, domain.StatusFailed, err)
			obs.OnItemDone(res, time.Since(started))
			return nil, fmt.Errorf("第 %d 项（%s）：%w", i, it.URL, err)

		default:
			ilog.Error("处理失败，跳过", "err", err)
			record(Failure{URL: it.URL, Err: err, Args: it.Args})
			fillError(&res, domain.StatusFailed, err)
			obs.OnItemDone(res, time.Since(started))
		}
	}

	if opts.Save {
		if err := ClearSave(dir); err != nil {
			log.Warn("删除进度文件失败", "err", err)
		}
		_ = os.Remove(filepath.Join(dir, StateFile+".lock"))
	}
	log.Info("批处理完成", "items", len(items), "failures", len(failures))

	if !opts.IgnoreErrors {
		return nil, nil
	}
	return failures, nil
}

func interrupted(ctx context.Context, it Item, i int, res domain.ItemResult, started time.Time, opts Options, obs Observer, log *slog.Logger, failures []Failure) ([]Failure, error) {
	ie := &InterruptedError{Index: i, URL: it.URL, Err: context.Cause(ctx)}
	log.Warn("收到中断，停止批处理（保留进度文件）")
	fillError(&res, domain.StatusInterrupted, ie)
	obs.OnItemDone(res, time.Since(started))
	if !opts.IgnoreErrors {
		return nil, ie
	}
	return append(failures, Failure{URL: it.URL, Err: ie, Args: it.Args}), ie
}

func workDir(root string) (string, error) {
	if root == "" {
		return os.Getwd()
	}
	return filepath.Abs(root)
}

func fillError(res *domain.ItemResult, status string, err error) {
	res.Status = status
	res.ErrorCode = ErrorCode(err)
	res.ErrorMsg = err.Error()
	var ime *curation.InvalidMetadataError
	if errors.As(err, &ime) {
		res.Problems = ime.Problems
	}
}

// ErrorCode 把错误归类为报告中的 error_code。
func ErrorCode(err error) string {
	var (
		ime *curation.InvalidMetadataError
		ie  *InterruptedError
		pe  *PreconditionError
		hse *fetch.HTTPStatusError
		ue  *url.Error
		pae *fs.PathError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ime):
		return domain.ErrCodeInvalidMetadata
	case errors.As(err, &ie):
		return domain.ErrCodeInterrupted
	case errors.As(err, &pe):
		return domain.ErrCodePrecondition
	case errors.As(err, &hse), errors.As(err, &ue):
		return domain.ErrCodeFetchFailed
	case fsx.IsPathTypeConflict(err):
		return domain.ErrCodeTargetConflict
	case errors.As(err, &pae):
		return domain.ErrCodeIOFailed
	default:
		return domain.ErrCodeCurationFailed
	}
}
