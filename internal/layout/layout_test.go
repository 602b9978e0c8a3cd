package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestEnsureCreatesLayout(t *testing.T) {
	project := New(t.TempDir())
	if err := project.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	for _, dir := range []string{
		project.Input(),
		project.RawVideo(),
		UsedDir(project.Enhancing()),
		UsedDir(project.Enhanced()),
		UsedDir(project.LipSynced()),
		project.Deliverables(),
		project.AudioAssets(),
		project.Logs(),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestBaseNameNormalizesUnicode(t *testing.T) {
	// Decomposed "é" (e + combining acute) must match the composed form.
	decomposed := "café.mp3"
	if got := BaseName("/some/dir/" + decomposed); got != "café" {
		t.Fatalf("expected composed base name, got %q", got)
	}
	if got := BaseName("/a/b/track.v2.mp4"); got != "track.v2" {
		t.Fatalf("expected only final extension stripped, got %q", got)
	}
}

func TestIsFromArchive(t *testing.T) {
	if !IsFromArchive(filepath.Join("root", "04_Enhancing", "Used", "clip.mp4")) {
		t.Fatal("expected archive path to be detected")
	}
	if IsFromArchive(filepath.Join("root", "04_Enhancing", "clip.mp4")) {
		t.Fatal("expected stage path to not be archive")
	}
	if IsFromArchive(filepath.Join("root", "UsedToBe", "clip.mp4")) {
		t.Fatal("expected partial element match to not count")
	}
}

func TestArchiveOriginalMovesIntoUsed(t *testing.T) {
	project := New(t.TempDir())
	if err := project.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	src := filepath.Join(project.Enhancing(), "clip.mp4")
	writeFile(t, src, "video")

	archived, err := ArchiveOriginal(src, project.Enhancing())
	if err != nil {
		t.Fatalf("ArchiveOriginal failed: %v", err)
	}
	if archived != filepath.Join(UsedDir(project.Enhancing()), "clip.mp4") {
		t.Fatalf("unexpected archive path %s", archived)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed after archive")
	}
	if _, err := os.Stat(archived); err != nil {
		t.Fatalf("expected archived file: %v", err)
	}
}

func TestArchiveOriginalSkipsArchivedSource(t *testing.T) {
	project := New(t.TempDir())
	if err := project.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	src := filepath.Join(UsedDir(project.Enhancing()), "clip.mp4")
	writeFile(t, src, "video")

	archived, err := ArchiveOriginal(src, project.Enhancing())
	if err != nil {
		t.Fatalf("ArchiveOriginal failed: %v", err)
	}
	if archived != src {
		t.Fatalf("expected archived source left in place, got %s", archived)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected original untouched: %v", err)
	}
}

func TestArchiveOriginalProbesSuffix(t *testing.T) {
	project := New(t.TempDir())
	if err := project.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	existing := filepath.Join(UsedDir(project.Enhancing()), "clip.mp4")
	writeFile(t, existing, "earlier run")
	src := filepath.Join(project.Enhancing(), "clip.mp4")
	writeFile(t, src, "video")

	archived, err := ArchiveOriginal(src, project.Enhancing())
	if err != nil {
		t.Fatalf("ArchiveOriginal failed: %v", err)
	}
	if archived != filepath.Join(UsedDir(project.Enhancing()), "clip(1).mp4") {
		t.Fatalf("expected suffixed archive name, got %s", archived)
	}
	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "earlier run" {
		t.Fatalf("expected earlier archive untouched: %q %v", data, err)
	}
}

func TestPromoteMovesFreshSource(t *testing.T) {
	project := New(t.TempDir())
	if err := project.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	src := filepath.Join(project.Enhancing(), "clip.mp4")
	writeFile(t, src, "video")

	dst, err := Promote(src, project.Enhanced())
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if dst != filepath.Join(project.Enhanced(), "clip.mp4") {
		t.Fatalf("unexpected destination %s", dst)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed by promotion")
	}
}

func TestPromoteCopiesArchivedSource(t *testing.T) {
	project := New(t.TempDir())
	if err := project.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	src := filepath.Join(UsedDir(project.LipSynced()), "clip.mp4")
	writeFile(t, src, "video")

	dst, err := Promote(src, project.Deliverables())
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected archived original preserved: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected promoted copy: %v", err)
	}

	// Re-running the promotion keeps copying, never consuming the archive.
	again, err := Promote(src, project.Deliverables())
	if err != nil {
		t.Fatalf("second Promote failed: %v", err)
	}
	if again == dst {
		t.Fatalf("expected suffixed second copy, got same path %s", again)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected archive copy intact after retry: %v", err)
	}
}
