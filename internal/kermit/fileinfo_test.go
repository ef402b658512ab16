package kermit

import (
	"testing"
	"time"
)

func TestFileInfoRoundTrip(t *testing.T) {
	want := FileInfo{Name: "report.txt", Size: 12345, ModTime: time.Unix(1700000000, 0), Mode: 0644}
	encoded := marshalFileInfo(want)
	got, err := parseFileInfo(encoded)
	if err != nil {
		t.Fatalf("parseFileInfo: %v", err)
	}
	if got.Name != want.Name || got.Size != want.Size || got.Mode != want.Mode {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.ModTime.Unix() != want.ModTime.Unix() {
		t.Fatalf("modtime mismatch: got %v, want %v", got.ModTime, want.ModTime)
	}
}

func TestSanitizeFilenameStripsTraversal(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"a/b/c.txt":         "c.txt",
		"plain.bin":          "plain.bin",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFileInfoRejectsEmpty(t *testing.T) {
	if _, err := parseFileInfo([]byte("")); err == nil {
		t.Fatal("expected error for empty file header")
	}
}
