package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/fpcurate/internal/infra/httpx"
	"github.com/John-Robertt/fpcurate/internal/logging"
	"github.com/John-Robertt/fpcurate/internal/validate"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是工作目录下自动发现的配置文件名。
const FileName = "fpcurate.toml"

// DefaultSharedName 是共享配置文件的默认文件名。
const DefaultSharedName = "clients.txt"

// CLIArgs 是命令行入口；指针为 nil 表示未显式指定。
// 这能保证覆盖优先级可实现：例如 --save=false 必须能覆盖 save = true。
type CLIArgs struct {
	// ConfigFile 非空时必须存在，且替代自动发现。
	ConfigFile string
	Dir        string

	UseTitle     *bool
	Overwrite    *bool
	Save         *bool
	IgnoreErrors *bool
	Validate     *string
	Site         *string
	Spoof        *bool
	PageCache    *bool
	ProxyURL     *string
	LogLevel     *string
	LogFormat    *string
	LogFile      *string
	SharedName   *string
	SharedPaths  []string
}

// FileConfig 对应 fpcurate.toml 的解析结构。
type FileConfig struct {
	Dir          string `toml:"dir"`
	UseTitle     *bool  `toml:"use_title"`
	Overwrite    *bool  `toml:"overwrite"`
	Save         *bool  `toml:"save"`
	IgnoreErrors *bool  `toml:"ignore_errors"`
	// Validate 可写 skip|flexible|rigid 或 0|1|2。
	Validate  any    `toml:"validate"`
	Site      string `toml:"site"`
	Spoof     bool   `toml:"spoof"`
	PageCache *bool  `toml:"page_cache"`

	Proxy  ProxyConfig  `toml:"proxy"`
	HTTP   HTTPConfig   `toml:"http"`
	Log    LogConfig    `toml:"log"`
	Shared SharedConfig `toml:"shared"`
}

type ProxyConfig struct {
	URL string `toml:"url"`
}

type HTTPConfig struct {
	Timeout string `toml:"timeout"`
	Retries *int   `toml:"retries"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// SharedConfig 描述传给每个 curation 的共享 key=value 配置。Name 为空表示不读取。
type SharedConfig struct {
	Name  string   `toml:"name"`
	Paths []string `toml:"paths"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Dir 是 curation 输出目录（绝对路径），进度文件与报告也写在这里。
	Dir string
	// ConfigPath 是实际读取的配置文件；没有时为空。
	ConfigPath string

	UseTitle     bool
	Overwrite    bool
	Save         bool
	IgnoreErrors bool
	Validate     validate.Mode

	// Site 非空时所有条目固定用该站点解析，否则按 URL 路由。
	Site      string
	Spoof     bool
	PageCache bool

	HTTP httpx.Options
	Log  logging.Options

	SharedName  string
	SharedPaths []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 ConfigFile：必须存在
// 2) 否则尝试 <cwd>/fpcurate.toml（可选）
//
// 覆盖优先级：CLI > 配置文件 > 默认值。相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := strings.TrimSpace(cli.ConfigFile) != ""
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, cli, fc)
	if err != nil {
		p := cfgPath
		if p == "" {
			p = "<cli>"
		}
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(cwd string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		Dir:          cwd,
		UseTitle:     pick(cli.UseTitle, fc.UseTitle, false),
		Overwrite:    pick(cli.Overwrite, fc.Overwrite, false),
		Save:         pick(cli.Save, fc.Save, false),
		IgnoreErrors: pick(cli.IgnoreErrors, fc.IgnoreErrors, false),
		Spoof:        pick(cli.Spoof, &fc.Spoof, false),
		PageCache:    pick(cli.PageCache, fc.PageCache, true),
		Site:         strings.ToLower(strings.TrimSpace(pickString(cli.Site, fc.Site))),
	}

	if dir := pickString(&cli.Dir, fc.Dir); strings.TrimSpace(dir) != "" {
		eff.Dir = absCleanFrom(cwd, dir)
	}

	mode := validate.Flexible
	raw := ""
	if cli.Validate != nil {
		raw = *cli.Validate
	} else if fc.Validate != nil {
		raw = fmt.Sprint(fc.Validate)
	}
	if raw != "" {
		m, err := validate.ParseMode(raw)
		if err != nil {
			return EffectiveConfig{}, err
		}
		mode = m
	}
	eff.Validate = mode

	proxyURL := strings.TrimSpace(pickString(cli.ProxyURL, fc.Proxy.URL))
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%q", proxyURL)
		}
	}
	eff.HTTP = httpx.Options{ProxyURL: proxyURL, Timeout: httpx.DefaultTimeout, RetryMax: httpx.DefaultRetryMax}
	if s := strings.TrimSpace(fc.HTTP.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return EffectiveConfig{}, fmt.Errorf("http.timeout 无效：%q", s)
		}
		eff.HTTP.Timeout = d
	}
	if fc.HTTP.Retries != nil {
		eff.HTTP.RetryMax = *fc.HTTP.Retries
		if eff.HTTP.RetryMax == 0 {
			eff.HTTP.RetryMax = -1
		}
	}

	eff.Log = logging.Options{
		Level:      pickString(cli.LogLevel, fc.Log.Level),
		Format:     pickString(cli.LogFormat, fc.Log.Format),
		File:       pickString(cli.LogFile, fc.Log.File),
		MaxSizeMB:  fc.Log.MaxSizeMB,
		MaxBackups: fc.Log.MaxBackups,
		MaxAgeDays: fc.Log.MaxAgeDays,
	}
	if _, err := logging.ParseLevel(eff.Log.Level); err != nil {
		return EffectiveConfig{}, err
	}
	if err := logging.CheckFormat(eff.Log.Format); err != nil {
		return EffectiveConfig{}, err
	}
	if eff.Log.File != "" {
		eff.Log.File = absCleanFrom(cwd, eff.Log.File)
	}

	eff.SharedName = strings.TrimSpace(pickString(cli.SharedName, fc.Shared.Name))
	paths := fc.Shared.Paths
	if len(cli.SharedPaths) > 0 {
		paths = cli.SharedPaths
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		eff.SharedPaths = append(eff.SharedPaths, absCleanFrom(cwd, p))
	}

	return eff, nil
}

func pick(cli, file *bool, def bool) bool {
	switch {
	case cli != nil:
		return *cli
	case file != nil:
		return *file
	default:
		return def
	}
}

func pickString(cli *string, file string) string {
	if cli != nil && *cli != "" {
		return *cli
	}
	return file
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件；未知字段报错，避免拼写错误被静默忽略。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b)).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
