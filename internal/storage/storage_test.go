package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewKeyKeepsFolderAndExtension(t *testing.T) {
	k := NewKey("profile-photos", "Me.JPG")
	if !strings.HasPrefix(k, "profile-photos/") || !strings.HasSuffix(k, ".jpg") {
		t.Fatalf("key=%q", k)
	}
	if NewKey("a", "x.png") == NewKey("a", "x.png") {
		t.Fatal("keys must be unique")
	}
}

func TestLocalUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	res, err := ls.Upload(ctx, &UploadRequest{Key: "licenses/a.pdf", Reader: strings.NewReader("pdf")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.URL != "/uploads/licenses/a.pdf" || res.Size != 3 {
		t.Fatalf("response %+v", res)
	}
	b, err := os.ReadFile(filepath.Join(dir, "licenses", "a.pdf"))
	if err != nil || string(b) != "pdf" {
		t.Fatalf("stored %q, %v", b, err)
	}

	if err := ls.Delete(ctx, "licenses/a.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ls.Delete(ctx, "licenses/a.pdf"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLocalKeysCannotEscapeBase(t *testing.T) {
	dir := t.TempDir()
	ls, _ := NewLocalStorage(filepath.Join(dir, "up"), "/uploads")
	if _, err := ls.Upload(context.Background(), &UploadRequest{Key: "../../evil", Reader: strings.NewReader("x")}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "up", "evil")); err != nil {
		t.Fatalf("file not confined to base: %v", err)
	}
}

func TestS3URL(t *testing.T) {
	s := &S3Storage{bucket: "b", region: "eu-west-1"}
	if got := s.URL("k.jpg"); got != "https://b.s3.eu-west-1.amazonaws.com/k.jpg" {
		t.Fatalf("url=%q", got)
	}
	s.cdnDomain = "cdn.example.com"
	if got := s.URL("k.jpg"); got != "https://cdn.example.com/k.jpg" {
		t.Fatalf("url=%q", got)
	}
}
