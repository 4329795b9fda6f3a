package filetype_test

import (
	"strings"
	"testing"

	"github.com/yeisme/codespace/pkg/internal/filetype"
)

func TestClassify(t *testing.T) {
	cases := map[string]filetype.Kind{
		"src/Main.java":    filetype.Text,
		"README.md":        filetype.Text,
		"Makefile":         filetype.Text,
		"assets/logo.PNG":  filetype.Binary,
		"lib/junit.jar":    filetype.Binary,
		"build/Main.class": filetype.Binary,
		"docs/handout.pdf": filetype.Binary,
		"notes.pdf.txt":    filetype.Text,
		"archive.tar.gz":   filetype.Binary,
	}

	for p, want := range cases {
		if got := filetype.Classify(p); got != want {
			t.Errorf("Classify(%q) = %s, want %s", p, got, want)
		}
	}
}

func TestContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if ct := filetype.ContentType("a.png", png); ct != "image/png" {
		t.Fatalf("png content type = %q", ct)
	}

	if ct := filetype.ContentType("Main.java", []byte("class Main {}")); !strings.HasPrefix(ct, "text/") {
		t.Fatalf("java content type = %q", ct)
	}
}

func TestReserved(t *testing.T) {
	r := filetype.DefaultReserved

	keys := []string{".sync/state", "src/Main.java", "out.bin.partial", "README.md"}

	got := r.Filter(keys)
	if len(got) != 2 || got[0] != "src/Main.java" || got[1] != "README.md" {
		t.Fatalf("unexpected filter result %v", got)
	}

	if (filetype.Reserved{}).Match(".sync/state") {
		t.Fatalf("empty rule must not match")
	}
}

func TestCleanPath(t *testing.T) {
	ok := map[string]string{
		"src/Main.java":   "src/Main.java",
		"src//a/../b.txt": "src/b.txt",
		" README.md ":     "README.md",
	}
	for in, want := range ok {
		got, valid := filetype.CleanPath(in)
		if !valid || got != want {
			t.Errorf("CleanPath(%q) = %q,%v want %q", in, got, valid, want)
		}
	}

	for _, bad := range []string{"", "/etc/passwd", "../x", "a/../../x", ".", "a\\b"} {
		if _, valid := filetype.CleanPath(bad); valid {
			t.Errorf("CleanPath(%q) should be rejected", bad)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	bin := []byte{0, 1, 2, 0xff}

	enc := filetype.Encode("a.png", bin)
	if enc.Encoding != filetype.EncodingBase64 {
		t.Fatalf("binary should be base64 encoded: %+v", enc)
	}

	got, err := filetype.Decode(enc.Content, true)
	if err != nil || string(got) != string(bin) {
		t.Fatalf("decode = %v %v", got, err)
	}

	if enc := filetype.Encode("a.txt", []byte("hi")); enc.Encoding != "" || enc.Content != "hi" {
		t.Fatalf("text should be plain: %+v", enc)
	}

	if _, err := filetype.Decode("not base64!", true); err == nil {
		t.Fatalf("invalid base64 accepted")
	}
}
