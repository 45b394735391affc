package domain

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// courseSlugPattern extracts the course slug from a course URL,
// e.g. https://learning.example.com/course/aws-certified-cloud/9780138314934/
var courseSlugPattern = regexp.MustCompile(`/course/([^/]+)/`)

// Course is the root of the discovered structure tree. It is rebuilt on
// every discovery pass and never persisted; only per-asset progress is.
type Course struct {
	ID      string
	Title   string
	URL     string
	Modules []Module
}

// Module is a top-level section of a course.
type Module struct {
	Ordinal int // 1-based, remote presentation order
	Title   string
	Lessons []Lesson
}

// Lesson groups the video assets of one module section.
type Lesson struct {
	Ordinal int
	Title   string
	Assets  []VideoAsset
}

// VideoAsset is a single downloadable video unit within a lesson.
// ID is derived from the remote URL and is stable across discovery passes.
type VideoAsset struct {
	Ordinal   int
	ID        string
	Title     string
	URL       string
	StreamRef string // opaque stream locator, resolved lazily per run
}

// CourseIDFromURL derives a stable short identifier from the course URL.
func CourseIDFromURL(courseURL string) string {
	sum := md5.Sum([]byte(courseURL))
	return hex.EncodeToString(sum[:])[:8]
}

// AssetIDFromURL derives a stable identifier for a video asset from its
// remote reference. Identical input always yields the identical id, which
// is what makes resume across runs possible.
func AssetIDFromURL(assetURL string) string {
	sum := md5.Sum([]byte(assetURL))
	return hex.EncodeToString(sum[:])[:16]
}

// CourseNameFromURL derives a human-readable course title from the URL slug.
// Returns empty string when the URL does not match the expected shape.
func CourseNameFromURL(courseURL string) string {
	m := courseSlugPattern.FindStringSubmatch(courseURL)
	if m == nil {
		return ""
	}
	words := strings.Split(m[1], "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Flatten returns every video asset of the course in depth-first order,
// which is also the default download order. Each entry carries the module
// and lesson context needed to compute its canonical path.
func (c *Course) Flatten() []FlatAsset {
	var flat []FlatAsset
	for mi := range c.Modules {
		mod := &c.Modules[mi]
		for li := range mod.Lessons {
			lesson := &mod.Lessons[li]
			for ai := range lesson.Assets {
				flat = append(flat, FlatAsset{
					Module: mod,
					Lesson: lesson,
					Asset:  &lesson.Assets[ai],
				})
			}
		}
	}
	return flat
}

// FlatAsset is a video asset along with its position in the tree.
type FlatAsset struct {
	Module *Module
	Lesson *Lesson
	Asset  *VideoAsset
}

// AssetCount returns the total number of downloadable assets.
func (c *Course) AssetCount() int {
	n := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			n += len(l.Assets)
		}
	}
	return n
}
