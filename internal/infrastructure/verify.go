package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/salvatorelai/ocd/internal/domain"
)

// MissingAsset describes one expected artifact not found on disk.
type MissingAsset struct {
	Module string `json:"module"`
	Lesson string `json:"lesson"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Path   string `json:"path"`
}

// VerifyReport summarizes an archive integrity check.
type VerifyReport struct {
	Expected int            `json:"expected"`
	Found    int            `json:"found"`
	Missing  []MissingAsset `json:"missing"`
}

// VerifyArchive walks the canonical layout derived from the discovered
// structure and checks that every expected artifact exists and is
// non-empty. In transcript-only mode the transcript file is the expected
// artifact; otherwise the video is.
func VerifyArchive(course *domain.Course, courseRoot string, transcriptOnly bool) (*VerifyReport, error) {
	if _, err := os.Stat(courseRoot); err != nil {
		return nil, fmt.Errorf("course folder not found: %s", courseRoot)
	}

	report := &VerifyReport{}
	for _, fa := range course.Flatten() {
		paths := domain.PathsFor(fa)
		expected := paths.Video
		if transcriptOnly {
			expected = paths.Transcript
		}

		report.Expected++
		full := filepath.Join(courseRoot, expected)
		if info, err := os.Stat(full); err == nil && info.Size() > 0 {
			report.Found++
			continue
		}

		report.Missing = append(report.Missing, MissingAsset{
			Module: fa.Module.Title,
			Lesson: fa.Lesson.Title,
			Title:  fa.Asset.Title,
			URL:    fa.Asset.URL,
			Path:   expected,
		})
	}

	return report, nil
}

// WriteMissingList saves the missing-assets list as JSON so a later run
// can be pointed at exactly the gaps.
func (r *VerifyReport) WriteMissingList(path string) error {
	data, err := json.MarshalIndent(r.Missing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
