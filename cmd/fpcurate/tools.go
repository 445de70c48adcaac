package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/fpcurate/internal/app/batch"
	"github.com/John-Robertt/fpcurate/internal/infra/httpx"
	"github.com/John-Robertt/fpcurate/internal/meta"
	"github.com/John-Robertt/fpcurate/internal/vocab"
)

func newClearSaveCommand(app *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-save",
		Short: "删除输出目录中的进度文件，下次从头开始",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := app.load(cmd)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			if err := batch.ClearSave(eff.Dir); err != nil {
				return &exitError{code: exitFailed, err: err}
			}
			fmt.Fprintf(app.stdout, "已清除进度：%s\n", eff.Dir)
			return nil
		},
	}
}

func newVocabCommand(app *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "vocab <platforms|tags>",
		Short:     "列出 Flashpoint wiki 上的平台或标签",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"platforms", "tags"},
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := app.load(cmd)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			log, closer, err := app.logger(eff)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			defer closer.Close()

			hc, err := httpx.NewClient(eff.HTTP)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			p := vocab.NewWikiProvider(hc, log)

			var set meta.Set
			if args[0] == "platforms" {
				set = p.Platforms(cmd.Context())
			} else {
				set = p.Tags(cmd.Context())
			}
			if len(set) == 0 {
				return &exitError{code: exitFailed, err: fmt.Errorf("未能从 wiki 获取 %s", args[0])}
			}
			names := make([]string, 0, len(set))
			for name := range set {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, n := range names {
				fmt.Fprintln(app.stdout, n)
			}
			return nil
		},
	}
}

func newFieldsCommand(app *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "列出元数据字段及可用的参数别名",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(meta.Fields))
			for _, f := range meta.Fields {
				al := meta.Aliases(f)
				slices.Sort(al)
				rows = append(rows, []string{string(f), strings.Join(al, ", ")})
			}
			fmt.Fprint(app.stdout, renderTable([]string{"FIELD", "ALIASES"}, rows, nil))
			return nil
		},
	}
}
