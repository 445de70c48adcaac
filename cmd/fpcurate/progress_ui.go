package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/fpcurate/internal/app/batch"
	"github.com/John-Robertt/fpcurate/internal/config"
	"github.com/John-Robertt/fpcurate/internal/domain"
)

var _ batch.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的逐条进度输出。
// 长时间没有条目完成时，ticker 会定期补一行进度。
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total    int
	resumeAt int
	done     int
	ok       int
	fail     int
	skip     int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(total, resumeAt int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt = now
	p.total = total
	p.resumeAt = resumeAt
	p.done = resumeAt

	fmt.Fprintf(p.w, "[%s] fpcurate curate\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  dir: %s\n", p.eff.Dir)
	if p.eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.ConfigPath)
	}
	site := p.eff.Site
	if site == "" {
		site = "auto"
	}
	fmt.Fprintf(p.w, "  site: %s\n", site)
	fmt.Fprintf(p.w, "  validate: %s\n", p.eff.Validate)
	fmt.Fprintf(p.w, "  save: %s  ignore_errors: %s  use_title: %s  overwrite: %s\n",
		onOff(p.eff.Save), onOff(p.eff.IgnoreErrors), onOff(p.eff.UseTitle), onOff(p.eff.Overwrite),
	)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.HTTP.ProxyURL))
	if resumeAt > 0 {
		fmt.Fprintf(p.w, "续跑：从第 %d/%d 项开始\n", resumeAt+1, total)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = now
	if total > resumeAt && !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnItemDone(res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = res.Index + 1
	label := ""
	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
		label = "OK"
	case domain.StatusFailed:
		p.fail++
		label = "FAIL"
	case domain.StatusSkipped, domain.StatusUnrouted:
		p.skip++
		label = "SKIP"
	default:
		label = strings.ToUpper(res.Status)
	}

	switch res.Status {
	case domain.StatusProcessed:
		title := res.Title
		if title == "" {
			title = res.Folder
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %s -> %s (%s)\n",
			p.done, p.total, label, truncate(res.URL, 100), truncate(title, 60), formatShortDuration(dur),
		)
	case domain.StatusUnrouted:
		fmt.Fprintf(p.w, "[%d/%d] %s %s (没有匹配的站点)\n", p.done, p.total, label, truncate(res.URL, 100))
	default:
		msg := res.ErrorMsg
		if len(res.Problems) > 0 {
			msg = strings.Join(res.Problems, "; ")
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s (%s)\n",
			p.done, p.total, label, truncate(res.URL, 100), res.ErrorCode, truncate(msg, 160), formatShortDuration(dur),
		)
	}
	p.lastPrinted = time.Now()

	if p.tickerStarted && (p.done >= p.total || res.Status == domain.StatusInterrupted) {
		p.stopTickerLocked()
	}
}

// Stop 停止 keepalive；可重复调用。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		p.stopTickerLocked()
	}
}

func (p *progressUI) stopTickerLocked() {
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) progressLineLocked() string {
	return fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d skip=%d elapsed=%s",
		p.done, p.total, p.ok, p.fail, p.skip, formatElapsed(time.Since(p.startedAt)),
	)
}

func (p *progressUI) startTickerLocked() {
	stop := make(chan struct{})
	p.stopCh = stop
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintln(p.w, p.progressLineLocked())
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	return "on (" + truncate(raw, 120) + ")"
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
