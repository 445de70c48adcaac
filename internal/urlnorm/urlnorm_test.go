package urlnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in                      string
		preserve, query, scheme bool
		want                    string
	}{
		{"https://www.newgrounds.com/portal/view/218014", false, true, true, "https://www.newgrounds.com/portal/view/218014"},
		{"https://www.newgrounds.com/portal/view/218014", false, true, false, "http://www.newgrounds.com/portal/view/218014"},
		{"uploads.ungrounded.net/218000/a.swf", true, false, false, "http://uploads.ungrounded.net/218000/a.swf"},
		{"//example.com/a.swf", true, false, true, "http://example.com/a.swf"},
		{`http:\/\/example.com\/a.swf`, true, false, false, "http://example.com/a.swf"},
		{"  http://example.com/game.php?id=1 ", true, false, false, "http://example.com/game.php"},
		{"http://example.com/game.php?id=1", true, true, false, "http://example.com/game.php?id=1"},
		{"https://web.archive.org/web/20070101000000/http://example.com/a.swf", false, true, false, "http://example.com/a.swf"},
		{"https://web.archive.org/web/2007id_/http://example.com/a.swf", true, true, true, "https://web.archive.org/web/2007id_/http://example.com/a.swf"},
		{"http:/example.com/a.swf", true, true, true, "http://example.com/a.swf"},
		{"potato", false, true, true, "http://potato"},
	}
	for _, c := range cases {
		got := Normalize(c.in, c.preserve, c.query, c.scheme)
		if got != c.want {
			t.Fatalf("Normalize(%q,%v,%v,%v) 期望 %q，实际 %q", c.in, c.preserve, c.query, c.scheme, c.want, got)
		}
	}
}

func TestIsNormalized(t *testing.T) {
	if !IsNormalized("http://uploads.ungrounded.net/218000/218014_DAbuddy_latest.swf", false) {
		t.Fatalf("http 链接应视为已规整")
	}
	if IsNormalized("https://uploads.ungrounded.net/a.swf", false) {
		t.Fatalf("launch command 不允许 https")
	}
	if !IsNormalized("https://uploads.ungrounded.net/a.swf", true) {
		t.Fatalf("source 允许 https")
	}
	if IsNormalized("https://web.archive.org/web/2007/http://a.com/b.swf", true) {
		t.Fatalf("web.archive.org 链接不应视为已规整")
	}
}

func TestMirrorPath(t *testing.T) {
	cases := []struct {
		in       string
		preserve bool
		query    bool
		fetch    string
		rel      string
	}{
		{"http://uploads.ungrounded.net/218000/218014_DAbuddy_latest.swf", false, false,
			"http://uploads.ungrounded.net/218000/218014_DAbuddy_latest.swf", "uploads.ungrounded.net/218000/218014_DAbuddy_latest.swf"},
		{"http://example.com/dir/", false, false, "http://example.com/dir/", "example.com/dir/index.html"},
		{"example.com", false, false, "http://example.com", "example.com/index.html"},
		{"http://example.com/game.php?id=1", false, true, "http://example.com/game.php?id=1", "example.com/game.php_id=1"},
		{"http://example.com/game.php?id=1", false, false, "http://example.com/game.php?id=1", "example.com/game.php"},
		{"https://web.archive.org/web/2007id_/http://example.com/a.swf", false, false,
			"https://web.archive.org/web/2007id_/http://example.com/a.swf", "example.com/a.swf"},
		{"http://127.0.0.1:8080/a.swf", false, false, "http://127.0.0.1:8080/a.swf", "127.0.0.1_8080/a.swf"},
	}
	for _, c := range cases {
		fetch, rel := MirrorPath(c.in, c.preserve, c.query)
		if fetch != c.fetch || rel != c.rel {
			t.Fatalf("MirrorPath(%q) 期望 (%q,%q)，实际 (%q,%q)", c.in, c.fetch, c.rel, fetch, rel)
		}
	}
}

func TestFileAndImageName(t *testing.T) {
	if got := FileName("http://example.com/a/b.swf?x=1"); got != "b.swf" {
		t.Fatalf("期望 b.swf，实际 %q", got)
	}
	if got := FileName("http://example.com/"); got != "index.html" {
		t.Fatalf("期望 index.html，实际 %q", got)
	}
	if got := ImageName("https://picon.ngfiles.com/218000/flash_218014_medium.gif"); got != "flash_218014_medium.png" {
		t.Fatalf("期望 flash_218014_medium.png，实际 %q", got)
	}
	if got := ImageName("http://example.com/logo"); got != "logo.png" {
		t.Fatalf("期望 logo.png，实际 %q", got)
	}
}
