package batch

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

// StateFile 是可续跑进度文件名，位于工作目录。
const StateFile = "c-info.tmp"

const stateVersion = 1

// 文件布局：[32 字节 sha256(条目列表)][JSON state]
type state struct {
	Version  int               `json:"version"`
	Next     int               `json:"next"`
	Failures []savedFailure    `json:"failures"`
	Config   map[string]string `json:"config"`
}

type savedFailure struct {
	URL      string         `json:"url"`
	Args     map[string]any `json:"args,omitempty"`
	Error    string         `json:"error"`
	Problems []string       `json:"problems,omitempty"`
}

// Hash 返回条目列表的规范编码摘要：同一列表在不同进程、不同次运行中结果一致。
// Args 以 JSON 编码（map 键有序）。
func Hash(items []Item) ([sha256.Size]byte, error) {
	type canon struct {
		URL  string         `json:"url"`
		Args map[string]any `json:"args"`
	}
	cs := make([]canon, len(items))
	for i, it := range items {
		cs[i] = canon{URL: it.URL, Args: it.Args}
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("编码条目列表失败：%w", err)
	}
	return sha256.Sum256(b), nil
}

// readState 读取 dir 下的进度文件。文件不存在、摘要不匹配或内容无法识别时 ok=false。
func readState(dir string, sum [sha256.Size]byte) (st state, ok bool, err error) {
	b, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state{}, false, nil
		}
		return state{}, false, err
	}
	if len(b) < sha256.Size || !bytes.Equal(b[:sha256.Size], sum[:]) {
		return state{}, false, nil
	}
	if err := json.Unmarshal(b[sha256.Size:], &st); err != nil || st.Version != stateVersion || st.Next < 0 {
		return state{}, false, nil
	}
	return st, true, nil
}

func writeState(dir string, sum [sha256.Size]byte, st state) error {
	st.Version = stateVersion
	if st.Failures == nil {
		st.Failures = []savedFailure{}
	}
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("编码进度失败：%w", err)
	}
	buf := make([]byte, 0, sha256.Size+len(body))
	buf = append(buf, sum[:]...)
	buf = append(buf, body...)
	return fsx.WriteFile(dir, StateFile, buf)
}

// ClearSave 删除 dir 下的进度文件；文件不存在不算错误。
func ClearSave(dir string) error {
	_, err := fsx.Delete(filepath.Join(dir, StateFile))
	return err
}

func saveFailure(f Failure) savedFailure {
	sf := savedFailure{URL: f.URL, Args: f.Args}
	if f.Err != nil {
		sf.Error = f.Err.Error()
	}
	var ime *curation.InvalidMetadataError
	if errors.As(f.Err, &ime) {
		sf.Problems = ime.Problems
	}
	return sf
}

func (sf savedFailure) failure() Failure {
	var err error
	if sf.Problems != nil {
		err = &curation.InvalidMetadataError{Problems: sf.Problems}
	} else {
		err = errors.New(sf.Error)
	}
	return Failure{URL: sf.URL, Args: sf.Args, Err: err}
}
