package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed   = "processed"
	StatusSkipped     = "skipped"
	StatusFailed      = "failed"
	StatusUnrouted    = "unrouted"
	StatusInterrupted = "interrupted"
)

const (
	ErrCodeInvalidMetadata = "invalid_metadata"
	ErrCodeFetchFailed     = "fetch_failed"
	ErrCodeTargetConflict  = "target_conflict"
	ErrCodeIOFailed        = "io_failed"
	ErrCodeCurationFailed  = "curation_failed"
	ErrCodeInterrupted     = "interrupted"
	ErrCodePrecondition    = "precondition_failed"
	ErrCodeConfigInvalid   = "config_invalid"
)

// ReportFile 是批处理报告在输出目录中的文件名。
const ReportFile = "fpcurate-report.json"

// RunReport 是对外稳定输出（fpcurate-report.json / stdout JSON）的结构。
type RunReport struct {
	Dir       string `json:"dir"`
	Site      string `json:"site"`
	ResumedAt int    `json:"resumed_at"`
	Total     int    `json:"total"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed   int  `json:"processed"`
	Skipped     int  `json:"skipped"`
	Failed      int  `json:"failed"`
	Unrouted    int  `json:"unrouted"`
	Interrupted bool `json:"interrupted"`
}

// ItemResult 是单个条目的处理结果。Index 是条目在输入列表中的下标（从 0 开始）。
type ItemResult struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Folder string `json:"folder"`
	Title  string `json:"title"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Problems []string `json:"problems"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 按 Index 稳定排序；Index<0 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Index
		b := r.Items[j].Index
		if a < 0 || b < 0 {
			return a >= 0 && b < 0
		}
		return a < b
	})

	var s ReportSummary
	for i := range r.Items {
		if r.Items[i].Problems == nil {
			r.Items[i].Problems = []string{}
		}
		switch r.Items[i].Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnrouted:
			s.Unrouted++
		case StatusInterrupted:
			s.Interrupted = true
		}
	}
	r.Summary = s
}

// OK 表示没有失败且没有被中断。校验未通过（skipped）不算失败。
func (r RunReport) OK() bool {
	return r.Summary.Failed == 0 && !r.Summary.Interrupted
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	return json.Marshal(Alias(r))
}
