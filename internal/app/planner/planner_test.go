package planner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

func TestFolderName(t *testing.T) {
	if got := FolderName("  Interactive Buddy ", true, "id"); got != "Interactive Buddy" {
		t.Fatalf("期望 %q，实际 %q", "Interactive Buddy", got)
	}
	if got := FolderName("What? A/B: <Game>", true, "id"); got != "What AB Game" {
		t.Fatalf("非法字符应被删除，实际 %q", got)
	}
	if got := FolderName("", true, "id"); got != NoTitle {
		t.Fatalf("空标题期望 %q，实际 %q", NoTitle, got)
	}
	if got := FolderName("???", true, "id"); got != NoTitle {
		t.Fatalf("清理后为空期望 %q，实际 %q", NoTitle, got)
	}
	for _, title := range []string{"..", " . ", " .. "} {
		if got := FolderName(title, true, "id"); got != NoTitle {
			t.Fatalf("标题 %q 期望 %q，实际 %q", title, NoTitle, got)
		}
	}
	if got := FolderName("...", true, "id"); got != "..." {
		t.Fatalf("普通点号标题应保留，实际 %q", got)
	}
	if got := FolderName("Interactive Buddy", false, "0f8c1a2e-0000-4000-8000-000000000000"); got != "0f8c1a2e-0000-4000-8000-000000000000" {
		t.Fatalf("useTitle=false 期望 id，实际 %q", got)
	}
	// "é" 的分解形式（e + U+0301）应归一化为组合形式。
	if got := FolderName("Pokémon", true, "id"); got != "Pokémon" {
		t.Fatalf("期望 NFC 归一化，实际 %q", got)
	}
}

func TestAllocFolder_SuffixDeterministic(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "Interactive Buddy", "meta.yaml"))
	write(t, filepath.Join(root, "Interactive Buddy (2)"))

	got, err := AllocFolder(root, "Interactive Buddy", false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if want := filepath.Join(root, "Interactive Buddy (3)"); got != want {
		t.Fatalf("期望 %q，实际 %q", want, got)
	}

	got, err = AllocFolder(root, "Interactive Buddy", true)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if want := filepath.Join(root, "Interactive Buddy"); got != want {
		t.Fatalf("overwrite 期望 %q，实际 %q", want, got)
	}
}

func TestAllocFolder_RejectsNamesOutsideRoot(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"", ".", "..", "../x", "a/b"} {
		for _, overwrite := range []bool{false, true} {
			var bad *fsx.InvalidCharacterError
			if _, err := AllocFolder(root, name, overwrite); !errors.As(err, &bad) {
				t.Fatalf("name=%q overwrite=%v 期望 InvalidCharacterError，实际 %v", name, overwrite, err)
			}
		}
	}
}

func TestAllocFolder_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nope")
	got, err := AllocFolder(root, "A", false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != filepath.Join(root, "A") {
		t.Fatalf("实际 %q", got)
	}
}

func write(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
}
