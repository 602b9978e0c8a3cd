package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"beatforge/internal/fileutil"
)

// Fixed folder names under the project root. An asset's location encodes its
// pipeline stage.
const (
	DirInput        = "01_Input"
	DirRawVideo     = "02_RawVideo"
	DirEnhancing    = "04_Enhancing"
	DirEnhanced     = "05_Enhanced"
	DirLipSynced    = "06_LipSynced"
	DirDeliverables = "98_FinalDeliverables"
	DirEditAssets   = "99_EditAssets"
	DirLogs         = "Logs"

	// DirUsed holds consumed originals under a stage folder.
	DirUsed = "Used"
	// DirAudioAssets holds analyzed tracks under the edit assets folder.
	DirAudioAssets = "Audio"
	// DirStills holds extracted reference frames under the edit assets folder.
	DirStills = "Stills"
)

// Project resolves stage folder paths under one project root.
type Project struct {
	Root string
}

// New builds a Project for the given root directory.
func New(root string) Project {
	return Project{Root: root}
}

func (p Project) Input() string        { return filepath.Join(p.Root, DirInput) }
func (p Project) RawVideo() string     { return filepath.Join(p.Root, DirRawVideo) }
func (p Project) Enhancing() string    { return filepath.Join(p.Root, DirEnhancing) }
func (p Project) Enhanced() string     { return filepath.Join(p.Root, DirEnhanced) }
func (p Project) LipSynced() string    { return filepath.Join(p.Root, DirLipSynced) }
func (p Project) Deliverables() string { return filepath.Join(p.Root, DirDeliverables) }
func (p Project) EditAssets() string   { return filepath.Join(p.Root, DirEditAssets) }
func (p Project) AudioAssets() string  { return filepath.Join(p.EditAssets(), DirAudioAssets) }
func (p Project) Stills() string       { return filepath.Join(p.EditAssets(), DirStills) }
func (p Project) Logs() string         { return filepath.Join(p.Root, DirLogs) }

// UsedDir returns the archive folder under a stage directory.
func UsedDir(stageDir string) string {
	return filepath.Join(stageDir, DirUsed)
}

// Ensure creates the full folder layout, including the archive subfolders
// for the stages that consume their originals.
func (p Project) Ensure() error {
	dirs := []string{
		p.Input(),
		p.RawVideo(),
		p.Enhancing(),
		UsedDir(p.Enhancing()),
		p.Enhanced(),
		UsedDir(p.Enhanced()),
		p.LipSynced(),
		UsedDir(p.LipSynced()),
		p.Deliverables(),
		p.EditAssets(),
		p.AudioAssets(),
		p.Stills(),
		p.Logs(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// BaseName returns the NFC-normalized filename without its extension, the key
// used for beat-grid records and set folders. macOS volumes hand back
// decomposed unicode, which would otherwise split one track into two keys.
func BaseName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return norm.NFC.String(base)
}

// IsFromArchive reports whether a path lives under a Used archive folder.
func IsFromArchive(path string) bool {
	for _, element := range strings.Split(filepath.Clean(path), string(filepath.Separator)) {
		if element == DirUsed {
			return true
		}
	}
	return false
}

// ArchiveOriginal moves a consumed original into its stage's Used folder and
// returns the archived path. A source already inside an archive is left in
// place so it stays reusable.
func ArchiveOriginal(src, stageDir string) (string, error) {
	if IsFromArchive(src) {
		return src, nil
	}
	usedDir := UsedDir(stageDir)
	if err := os.MkdirAll(usedDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	dst, err := reserveVariant(usedDir, filepath.Base(src))
	if err != nil {
		return "", err
	}
	if err := fileutil.MoveFile(src, dst); err != nil {
		return "", fmt.Errorf("archive %s: %w", src, err)
	}
	return dst, nil
}

// Promote hands an asset to the next stage folder and returns its new path.
// The move is the commit point; a source that came from an archive is copied
// instead so the archived original survives.
func Promote(src, destDir string) (string, error) {
	dst, err := reserveVariant(destDir, filepath.Base(src))
	if err != nil {
		return "", err
	}
	if IsFromArchive(src) {
		if err := fileutil.CopyFile(src, dst); err != nil {
			return "", fmt.Errorf("promote copy %s: %w", src, err)
		}
		return dst, nil
	}
	if err := fileutil.MoveFile(src, dst); err != nil {
		return "", fmt.Errorf("promote %s: %w", src, err)
	}
	return dst, nil
}

// reserveVariant claims a collision-free name for baseName inside dir.
func reserveVariant(dir, baseName string) (string, error) {
	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)
	return fileutil.ReserveName(func(n int) string {
		if n == 0 {
			return filepath.Join(dir, baseName)
		}
		return filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, n, ext))
	})
}
