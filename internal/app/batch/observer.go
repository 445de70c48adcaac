package batch

import (
	"sync"
	"time"

	"github.com/John-Robertt/fpcurate/internal/domain"
)

// Observer 用于把“进度/条目结果”从批处理流程中解耦出来。
//
// 约束：
// - batch 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：CLI 可能另起 ticker 读取进度。
type Observer interface {
	// OnStart 在开始处理第一个条目前调用；resumeAt>0 表示从进度文件续跑。
	OnStart(total, resumeAt int)
	// OnItemDone 在某个条目处理完成（成功/跳过/失败/中断）时调用。
	OnItemDone(res domain.ItemResult, dur time.Duration)
}

type multiObserver []Observer

// Observers 把多个 Observer 合成一个，按顺序分发事件；nil 会被忽略。
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) OnStart(total, resumeAt int) {
	for _, o := range m {
		o.OnStart(total, resumeAt)
	}
}

func (m multiObserver) OnItemDone(res domain.ItemResult, dur time.Duration) {
	for _, o := range m {
		o.OnItemDone(res, dur)
	}
}

// Recorder 收集事件生成 RunReport。
type Recorder struct {
	Dir  string
	Site string

	mu     sync.Mutex
	report domain.RunReport
}

func (r *Recorder) OnStart(total, resumeAt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = domain.RunReport{
		Dir:       r.Dir,
		Site:      r.Site,
		Total:     total,
		ResumedAt: resumeAt,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, max(total-resumeAt, 0)),
	}
}

func (r *Recorder) OnItemDone(res domain.ItemResult, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Items = append(r.report.Items, res)
}

// Add 追加一条不来自批处理循环的结果（例如前置条件错误）。
func (r *Recorder) Add(res domain.ItemResult) {
	r.OnItemDone(res, 0)
}

// Report 返回当前已收集结果的快照（已 Finalize）。
func (r *Recorder) Report() domain.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	rr := r.report
	rr.Dir, rr.Site = r.Dir, r.Site
	if rr.StartedAt.IsZero() {
		rr.StartedAt = time.Now().UTC()
	}
	rr.Items = append([]domain.ItemResult(nil), r.report.Items...)
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
