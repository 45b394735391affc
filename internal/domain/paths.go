package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxFolderNameLen = 100
	maxFileNameLen   = 200
)

var (
	invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	// timing suffixes the course page appends to section titles,
	// e.g. "Lesson 3: Networking 28m" or "1h 20m remaining"
	timingSuffix = regexp.MustCompile(`\d+[smh](\s+\d+[sm])?\s*(remaining)?`)
)

// SanitizeFolderName cleans a module or lesson title for use as a directory
// name: timing metadata and completion markers are stripped, characters
// illegal in paths removed, whitespace collapsed and the result truncated.
func SanitizeFolderName(name string) string {
	name = timingSuffix.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "Complete", "")
	name = invalidPathChars.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > maxFolderNameLen {
		name = name[:maxFolderNameLen]
	}
	return strings.TrimSpace(name)
}

// SanitizeFileName cleans a video title for use as a file name.
func SanitizeFileName(name string) string {
	name = invalidPathChars.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > maxFileNameLen {
		name = name[:maxFileNameLen]
	}
	return strings.TrimSpace(name)
}

// CanonicalDir returns the lesson directory for an asset, relative to the
// course root:
//
//	<ModuleOrdinal 2-digit> - <ModuleTitle>/<LessonOrdinal 2-digit> - <LessonTitle>
//
// The result is a pure function of ordinals and titles. Ordinal prefixes
// keep paths collision-free even when distinct titles sanitize identically.
func CanonicalDir(module *Module, lesson *Lesson) string {
	moduleDir := fmt.Sprintf("%02d - %s", module.Ordinal, SanitizeFolderName(module.Title))
	lessonDir := fmt.Sprintf("%02d - %s", lesson.Ordinal, SanitizeFolderName(lesson.Title))
	return filepath.Join(moduleDir, lessonDir)
}

// AssetBaseName returns the file name stem for an asset within its lesson
// directory, e.g. "03 - Setting Up The VPC". Extensions (.mp4, .txt) are
// appended by the artifact writer.
func AssetBaseName(asset *VideoAsset) string {
	return fmt.Sprintf("%02d - %s", asset.Ordinal, SanitizeFileName(asset.Title))
}

// CanonicalPaths bundles the final on-disk locations for one asset.
type CanonicalPaths struct {
	Dir        string // lesson directory, relative to course root
	Video      string // mp4 path, relative to course root
	Transcript string // txt path, relative to course root
}

// PathsFor computes all canonical locations for a flattened asset.
func PathsFor(fa FlatAsset) CanonicalPaths {
	dir := CanonicalDir(fa.Module, fa.Lesson)
	base := AssetBaseName(fa.Asset)
	return CanonicalPaths{
		Dir:        dir,
		Video:      filepath.Join(dir, base+".mp4"),
		Transcript: filepath.Join(dir, base+".txt"),
	}
}
