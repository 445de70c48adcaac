package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_TextLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(&buf, Options{Level: "warn"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer closer.Close()

	log.Info("hidden")
	log.Warn("shown", "url", "http://a.com")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info 不应输出：%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "url=http://a.com") {
		t.Fatalf("warn 应以 text 格式输出：%s", out)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(&buf, Options{Level: "info", Format: "JSON"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	log.Info("已保存", "folder", "x")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("期望一行 JSON，实际 %q：%v", buf.String(), err)
	}
	if m["msg"] != "已保存" || m["folder"] != "x" {
		t.Fatalf("字段不符：%v", m)
	}
}

func TestNew_FileOutput(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "fpcurate.log")
	var buf bytes.Buffer
	log, closer, err := New(&buf, Options{File: p})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	log.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("关闭失败：%v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("读取日志文件失败：%v", err)
	}
	if !strings.Contains(string(b), "to file") {
		t.Fatalf("日志文件内容不符：%s", b)
	}
	if buf.Len() != 0 {
		t.Fatalf("配置文件后不应写入 w：%s", buf.String())
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, _, err := New(nil, Options{Level: "loud"}); err == nil {
		t.Fatalf("未知级别应报错")
	}
	if _, _, err := New(nil, Options{Format: "xml"}); err == nil {
		t.Fatalf("未知格式应报错")
	}
}
