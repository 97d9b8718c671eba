package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/checksum"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	fs.countPages = nil
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList_Flat(t *testing.T) {
	s := tempRoot(t)
	writeFile(t, filepath.Join(s.root, "a.pdf"), "a")
	writeFile(t, filepath.Join(s.root, "B.PDF"), "bb")
	writeFile(t, filepath.Join(s.root, "notes.txt"), "x")
	writeFile(t, filepath.Join(s.root, ".hidden.pdf"), "x")
	writeFile(t, filepath.Join(s.root, "sub", "c.pdf"), "c")

	docs, err := s.List("", false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(docs), docs)
	}
	if docs[0].Path != filepath.Join(s.root, "B.PDF") || docs[0].Size != 2 {
		t.Errorf("docs[0] = %+v", docs[0])
	}
}

func TestList_Recursive(t *testing.T) {
	s := tempRoot(t)
	writeFile(t, filepath.Join(s.root, "a.pdf"), "a")
	writeFile(t, filepath.Join(s.root, "sub", "deep", "c.pdf"), "c")
	writeFile(t, filepath.Join(s.root, ".git", "d.pdf"), "d")

	docs, err := s.List("", true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(docs), docs)
	}
}

func TestInspect(t *testing.T) {
	s := tempRoot(t)
	p := filepath.Join(s.root, "doc.pdf")
	writeFile(t, p, "12345")
	s.countPages = func(string) (int, error) { return 7, nil }

	doc, err := s.Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if doc.Size != 5 || doc.Pages != 7 || doc.Path != p {
		t.Errorf("doc = %+v", doc)
	}
}

func TestInspect_PageCountFailureIgnored(t *testing.T) {
	s := tempRoot(t)
	p := filepath.Join(s.root, "doc.pdf")
	writeFile(t, p, "not a pdf")
	s.countPages = func(string) (int, error) { return 0, errors.New("malformed") }

	doc, err := s.Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if doc.Pages != 0 {
		t.Errorf("pages = %d", doc.Pages)
	}
}

func TestInspect_PageCountTimesOut(t *testing.T) {
	s := tempRoot(t)
	p := filepath.Join(s.root, "doc.pdf")
	writeFile(t, p, "12345")
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	s.countPages = func(string) (int, error) {
		<-release
		return 3, nil
	}
	s.pageTimeout = 50 * time.Millisecond

	start := time.Now()
	doc, err := s.Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if doc.Pages != 0 || doc.Size != 5 {
		t.Errorf("doc = %+v", doc)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Inspect waited %v for a stuck page count", elapsed)
	}
}

func TestInspect_PageCountPanicIgnored(t *testing.T) {
	s := tempRoot(t)
	p := filepath.Join(s.root, "doc.pdf")
	writeFile(t, p, "%PDF-garbage")
	s.countPages = func(string) (int, error) { panic("bad xref") }
	s.pageTimeout = time.Second

	doc, err := s.Inspect(p)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if doc.Pages != 0 {
		t.Errorf("pages = %d", doc.Pages)
	}
}

func TestMoveNoClobber(t *testing.T) {
	s := tempRoot(t)
	src := filepath.Join(s.root, "scan001.pdf")
	dst := filepath.Join(s.root, "Invoice-ACME-2023.pdf")
	writeFile(t, src, "data")

	if err := s.MoveNoClobber(src, dst); err != nil {
		t.Fatalf("MoveNoClobber: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone")
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "data" {
		t.Errorf("dst = %q, %v", got, err)
	}
}

func TestMoveNoClobber_ExistingDestination(t *testing.T) {
	s := tempRoot(t)
	src := filepath.Join(s.root, "scan001.pdf")
	dst := filepath.Join(s.root, "taken.pdf")
	writeFile(t, src, "source bytes")
	writeFile(t, dst, "destination bytes")
	srcSum, _ := checksum.SumFile(src)
	dstSum, _ := checksum.SumFile(dst)

	err := s.MoveNoClobber(src, dst)
	if !errors.Is(err, apperr.ErrNameConflict) {
		t.Fatalf("err = %v, want ErrNameConflict", err)
	}
	if got, _ := checksum.SumFile(src); got != srcSum {
		t.Error("source modified")
	}
	if got, _ := checksum.SumFile(dst); got != dstSum {
		t.Error("destination modified")
	}
}

func TestMoveNoClobber_MissingSource(t *testing.T) {
	s := tempRoot(t)
	err := s.MoveNoClobber(filepath.Join(s.root, "gone.pdf"), filepath.Join(s.root, "new.pdf"))
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
	src := filepath.Join(s.root, "a.pdf")
	writeFile(t, src, "a")

	cases := []string{
		"../outside.pdf",
		"/etc/outside.pdf",
		filepath.Join(s.root, "..", "escaped.pdf"),
	}
	for _, p := range cases {
		if err := s.MoveNoClobber(src, p); err == nil {
			t.Errorf("expected error for move to %q", p)
		}
		if _, err := s.Exists(p); err == nil {
			t.Errorf("expected error for exists %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/retitle-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "retitle-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestIsPDF(t *testing.T) {
	for name, want := range map[string]bool{
		"a.pdf": true, "A.PDF": true, "a.Pdf": true, "a.pdf.txt": false, "pdf": false,
	} {
		if got := IsPDF(name); got != want {
			t.Errorf("IsPDF(%q) = %v", name, got)
		}
	}
}
