package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
	"github.com/John-Robertt/fpcurate/internal/infra/httpx"
	"github.com/John-Robertt/fpcurate/internal/validate"
	"github.com/John-Robertt/fpcurate/internal/vocab"
)

var metaFileRE = regexp.MustCompile(`(.*/)?meta\.yaml`)

func newValidateCommand(app *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [目录]...",
		Short: "检查已有 curation 的 meta.yaml",
		Long: `递归查找目录下的 meta.yaml 并逐个校验，列出有问题的 curation。
不指定目录时检查输出目录（--dir）。存在问题时退出码为 1。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, app, args)
		},
	}
	cmd.Flags().String("validate", "", "校验模式：flexible|rigid（或 1|2），默认取配置")
	return cmd
}

func runValidate(cmd *cobra.Command, app *commandContext, args []string) error {
	eff, err := app.load(cmd)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	log, closer, err := app.logger(eff)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	defer closer.Close()

	rigid := eff.Validate == validate.Rigid
	var vocabulary validate.Vocabulary
	if rigid {
		hc, err := httpx.NewClient(eff.HTTP)
		if err != nil {
			return &exitError{code: exitUsage, err: err}
		}
		vocabulary = vocab.NewWikiProvider(hc, log)
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{eff.Dir}
	}
	cwd, err := app.workDir()
	if err != nil {
		return err
	}

	var rows [][]string
	total := 0
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(cwd, d)
		}
		files, _, err := fsx.ScanDir(d, metaFileRE, true)
		if err != nil {
			return &exitError{code: exitFailed, err: err}
		}
		for _, f := range files {
			folder := filepath.Dir(f)
			name, _ := filepath.Rel(d, folder)
			total++

			c, err := curation.Load(folder)
			if err != nil {
				rows = append(rows, []string{name, "", truncate(err.Error(), 400)})
				continue
			}
			problems := validate.Validate(cmd.Context(), c.Meta, rigid, vocabulary)
			if len(problems) == 0 {
				continue
			}
			rows = append(rows, []string{name, truncate(c.String("title"), 60), strings.Join(problems, "\n")})
		}
	}

	if len(rows) > 0 {
		fmt.Fprint(app.stdout, renderTable(
			[]string{"FOLDER", "TITLE", "PROBLEMS"},
			rows,
			[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignLeft},
		))
	}
	fmt.Fprintf(app.stdout, "共 %d 个 curation，%d 个存在问题（%s）\n", total, len(rows), modeName(rigid))
	if len(rows) > 0 {
		return &exitError{code: exitFailed}
	}
	return nil
}

func modeName(rigid bool) string {
	if rigid {
		return validate.Rigid.String()
	}
	return validate.Flexible.String()
}
