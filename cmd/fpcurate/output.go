package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/fpcurate/internal/domain"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// pickProgressWriter 只在交互终端启用进度输出；默认走 stderr，不污染 stdout 的 JSON。
func (c *commandContext) pickProgressWriter() (io.Writer, bool) {
	if isTTY(c.stderr) {
		return c.stderr, true
	}
	if isTTY(c.stdout) {
		return c.stdout, true
	}
	return nil, false
}

func summaryLine(rr domain.RunReport) string {
	line := fmt.Sprintf("完成：processed=%d skipped=%d failed=%d unrouted=%d",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unrouted,
	)
	if rr.Summary.Interrupted {
		line += "（已中断，可用 --save 续跑）"
	}
	return line
}

// emitReport 在终端上输出摘要和问题表；非终端时 stdout 只输出一个 RunReport JSON。
func (c *commandContext) emitReport(rr domain.RunReport) {
	if !isTTY(c.stdout) {
		_ = json.NewEncoder(c.stdout).Encode(rr)
		fmt.Fprintln(c.stderr, summaryLine(rr))
		return
	}

	fmt.Fprintln(c.stdout, summaryLine(rr))
	var rows [][]string
	for _, it := range rr.Items {
		if it.Status == domain.StatusProcessed {
			continue
		}
		key := it.URL
		if key == "" {
			key = "<none>"
		}
		msg := it.ErrorMsg
		if len(it.Problems) > 0 {
			msg = strings.Join(it.Problems, "\n")
		}
		rows = append(rows, []string{key, it.Status, it.ErrorCode, truncate(msg, 400)})
	}
	if len(rows) > 0 {
		fmt.Fprint(c.stderr, renderTable(
			[]string{"URL", "STATUS", "CODE", "MESSAGE"},
			rows,
			[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignLeft, text.AlignLeft},
		))
	}
}

func writeReportFile(dir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFile(dir, domain.ReportFile, b)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.DrawBorder = true

	hdr := make(table.Row, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	tw.AppendHeader(hdr)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	if len(aligns) > 0 {
		cfgs := make([]table.ColumnConfig, 0, len(aligns))
		for i, a := range aligns {
			cfgs = append(cfgs, table.ColumnConfig{Number: i + 1, Align: a})
		}
		tw.SetColumnConfigs(cfgs)
	}
	return tw.Render() + "\n"
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
