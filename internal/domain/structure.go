package domain

import (
	"fmt"
	"strings"
)

// RawModule, RawLesson and RawItem mirror the loosely structured hierarchy
// the session driver extracts from the course page. Order is significant:
// slices preserve remote presentation order.
type RawModule struct {
	Title   string      `json:"module"`
	Lessons []RawLesson `json:"lessons"`
}

// RawLesson is one lesson entry of a raw module.
type RawLesson struct {
	Title string    `json:"lesson"`
	Items []RawItem `json:"items"`
}

// RawItem is one link found under a lesson. Not every item is a video:
// quiz and continue links are filtered out during discovery.
type RawItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MalformedStructureError reports a hierarchy that failed strict validation.
// It is fatal for the course: ambiguity is rejected at the boundary instead
// of being propagated into the pipeline.
type MalformedStructureError struct {
	Reason string
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("malformed course structure: %s", e.Reason)
}

// DiscoverCourse turns a raw extracted hierarchy into a validated Course
// tree. It is a pure function: discovering twice from identical input
// yields identical ordinals, ids and titles.
//
// Validation is strict. Missing titles or URLs and duplicate asset
// references fail with MalformedStructureError. Quiz/continue links are
// dropped, as are "Unknown" placeholder modules and lessons when real
// siblings exist. Lessons and modules left without any video asset are
// dropped entirely so ordinals stay contiguous.
func DiscoverCourse(courseURL, title string, raw []RawModule) (*Course, error) {
	if courseURL == "" {
		return nil, &MalformedStructureError{Reason: "empty course URL"}
	}
	if len(raw) == 0 {
		return nil, &MalformedStructureError{Reason: "no modules in hierarchy"}
	}
	if title == "" {
		title = CourseNameFromURL(courseURL)
	}

	course := &Course{
		ID:    CourseIDFromURL(courseURL),
		Title: title,
		URL:   courseURL,
	}

	seenAssets := make(map[string]string) // asset id -> url
	dropUnknownModules := countKnown(raw) > 0

	for _, rm := range raw {
		if rm.Title == "" {
			return nil, &MalformedStructureError{Reason: "module with empty title"}
		}
		if isUnknownTitle(rm.Title) && dropUnknownModules && len(raw) > 1 {
			continue
		}

		mod := Module{
			Ordinal: len(course.Modules) + 1,
			Title:   rm.Title,
		}

		dropUnknownLessons := countKnownLessons(rm.Lessons) > 0
		for _, rl := range rm.Lessons {
			if rl.Title == "" {
				return nil, &MalformedStructureError{
					Reason: fmt.Sprintf("lesson with empty title in module %q", rm.Title),
				}
			}
			if isUnknownTitle(rl.Title) && dropUnknownLessons && len(rm.Lessons) > 1 {
				continue
			}

			lesson := Lesson{
				Ordinal: len(mod.Lessons) + 1,
				Title:   rl.Title,
			}

			for _, item := range rl.Items {
				if IsSkippableItem(item.URL) {
					continue
				}
				if item.URL == "" {
					return nil, &MalformedStructureError{
						Reason: fmt.Sprintf("item with empty URL in lesson %q", rl.Title),
					}
				}
				if item.Title == "" {
					return nil, &MalformedStructureError{
						Reason: fmt.Sprintf("item with empty title: %s", item.URL),
					}
				}

				id := AssetIDFromURL(item.URL)
				if prev, dup := seenAssets[id]; dup {
					return nil, &MalformedStructureError{
						Reason: fmt.Sprintf("duplicate asset reference %s (also %s)", item.URL, prev),
					}
				}
				seenAssets[id] = item.URL

				lesson.Assets = append(lesson.Assets, VideoAsset{
					Ordinal: len(lesson.Assets) + 1,
					ID:      id,
					Title:   item.Title,
					URL:     item.URL,
				})
			}

			if len(lesson.Assets) > 0 {
				mod.Lessons = append(mod.Lessons, lesson)
			}
		}

		if len(mod.Lessons) > 0 {
			course.Modules = append(course.Modules, mod)
		}
	}

	if len(course.Modules) == 0 {
		return nil, &MalformedStructureError{Reason: "no video assets in hierarchy"}
	}

	return course, nil
}

// IsSkippableItem reports whether a hierarchy link is a quiz or continue
// link rather than a video asset.
func IsSkippableItem(url string) bool {
	return strings.Contains(url, "/quiz/") || strings.Contains(url, "/continue/")
}

func isUnknownTitle(title string) bool {
	return strings.Contains(title, "Unknown")
}

func countKnown(raw []RawModule) int {
	n := 0
	for _, rm := range raw {
		if !isUnknownTitle(rm.Title) {
			n++
		}
	}
	return n
}

func countKnownLessons(lessons []RawLesson) int {
	n := 0
	for _, rl := range lessons {
		if !isUnknownTitle(rl.Title) {
			n++
		}
	}
	return n
}
