package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
	"github.com/dgallion1/buckutils/internal/pdftest"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("BUCKUTILS_CONFIG", "")

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), append([]string{"--no-renderer"}, args...))
	return stdout.String(), stderr.String(), err
}

func widths(t *testing.T, path string) []int {
	t.Helper()
	dims, err := pdfdoc.PageDims(path)
	if err != nil {
		t.Fatalf("PageDims(%s): %v", path, err)
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d.Width + 0.5)
	}
	return out
}

func fixtures(t *testing.T) (dir, a, b string) {
	t.Helper()
	dir = t.TempDir()
	a = pdftest.Write(t, dir, "a.pdf",
		pdftest.Page{Width: 100, Height: 300, Text: "first of a"},
		pdftest.Page{Width: 110, Height: 300},
		pdftest.Page{Width: 120, Height: 300},
	)
	b = pdftest.Write(t, dir, "b.pdf",
		pdftest.Page{Width: 200, Height: 300, Text: "only page of b"},
	)
	return dir, a, b
}

func TestApp_Version(t *testing.T) {
	stdout, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(stdout, "buckutils version") {
		t.Errorf("version output missing 'buckutils version', got: %s", stdout)
	}
}

func TestApp_Help(t *testing.T) {
	stdout, _, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"combine", "pages", "preview", "backend", "serve"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestApp_Backend(t *testing.T) {
	stdout, _, err := run(t, "backend")
	if err != nil {
		t.Fatalf("backend command failed: %v", err)
	}
	if !strings.Contains(stdout, "PDF backend: "+pdfdoc.Backend) {
		t.Errorf("missing backend line, got: %s", stdout)
	}
	if !strings.Contains(stdout, "Renderer: none") {
		t.Errorf("renderer should be disabled, got: %s", stdout)
	}
}

func TestApp_Combine(t *testing.T) {
	dir, a, b := fixtures(t)
	junk := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(junk, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.pdf")

	stdout, stderr, err := run(t, "combine", "-o", out, b, junk, a)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if !strings.Contains(stderr, "Skipping") {
		t.Errorf("expected skip notice, got stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "Combined 2 file(s)") {
		t.Errorf("unexpected output: %s", stdout)
	}
	if got, want := widths(t, out), []int{200, 100, 110, 120}; !reflect.DeepEqual(got, want) {
		t.Errorf("page widths = %v, want %v", got, want)
	}
}

func TestApp_CombineRequiresOutput(t *testing.T) {
	_, a, _ := fixtures(t)
	if _, _, err := run(t, "combine", a); err == nil {
		t.Fatal("expected error without -o")
	}
}

func TestApp_CombineNothingReadable(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(junk, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.pdf")

	if _, _, err := run(t, "combine", "-o", out, junk); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("no output file should be written, stat err = %v", err)
	}
}

func TestApp_Pages(t *testing.T) {
	dir, a, b := fixtures(t)
	out := filepath.Join(dir, "picked.pdf")

	stdout, stderr, err := run(t, "pages", "-o", out, a+":3", b, a+":1-2", a+":3")
	if err != nil {
		t.Fatalf("pages failed: %v", err)
	}
	if !strings.Contains(stderr, "a.pdf - Page 3 is already included") {
		t.Errorf("expected duplicate notice, got stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "Wrote 4 page(s)") {
		t.Errorf("unexpected output: %s", stdout)
	}
	if got, want := widths(t, out), []int{120, 200, 100, 110}; !reflect.DeepEqual(got, want) {
		t.Errorf("page widths = %v, want %v", got, want)
	}
}

func TestApp_PagesOutOfRange(t *testing.T) {
	dir, a, _ := fixtures(t)
	out := filepath.Join(dir, "picked.pdf")

	_, _, err := run(t, "pages", "-o", out, a+":4")
	if !errors.Is(err, pdfdoc.ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("no output file should be written, stat err = %v", err)
	}
}

func TestParsePageSpec(t *testing.T) {
	tests := []struct {
		arg     string
		path    string
		pages   []int
		wantErr bool
	}{
		{arg: "a.pdf", path: "a.pdf"},
		{arg: "a.pdf:1", path: "a.pdf", pages: []int{0}},
		{arg: "a.pdf:3-5", path: "a.pdf", pages: []int{2, 3, 4}},
		{arg: "a.pdf:2,1", path: "a.pdf", pages: []int{1, 0}},
		{arg: "a.pdf:1,4-5", path: "a.pdf", pages: []int{0, 3, 4}},
		{arg: `C:\docs\a.pdf`, path: `C:\docs\a.pdf`},
		{arg: `C:\docs\a.pdf:2`, path: `C:\docs\a.pdf`, pages: []int{1}},
		{arg: "a.pdf:0", wantErr: true},
		{arg: "a.pdf:5-3", wantErr: true},
		{arg: "a.pdf:1,,2", wantErr: true},
		{arg: ":1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			path, pages, err := parsePageSpec(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got path=%q pages=%v", path, pages)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if path != tt.path {
				t.Errorf("path = %q, want %q", path, tt.path)
			}
			if !reflect.DeepEqual(pages, tt.pages) {
				t.Errorf("pages = %v, want %v", pages, tt.pages)
			}
		})
	}
}

func TestApp_Preview(t *testing.T) {
	_, a, b := fixtures(t)

	stdout, stderr, err := run(t, "preview", "--workers", "2", a, b)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !strings.Contains(stderr, "Generating previews... 4/4") {
		t.Errorf("missing final progress line, got stderr: %s", stderr)
	}
	for _, want := range []string{
		"a.pdf - Page 1\n    first of a",
		"a.pdf - Page 2\n    No text preview available for this page.",
		"b.pdf - Page 1\n    only page of b",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("preview output missing %q, got:\n%s", want, stdout)
		}
	}
	// Labels follow import order.
	if strings.Index(stdout, "a.pdf - Page 3") > strings.Index(stdout, "b.pdf - Page 1") {
		t.Errorf("pages out of order:\n%s", stdout)
	}
}

func TestApp_PreviewNoReadableFiles(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(junk, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, "preview", junk); err == nil {
		t.Fatal("expected error")
	}
}
