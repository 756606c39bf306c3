package search

import (
	"fmt"
	"strings"

	"atlas/pkg/model"
)

// FormatResults renders a merged result set as the plain-text block handed
// to the answer-generation layer: each chunk under a [PRIMARY] or [RELATED]
// header naming its course and lesson.
func FormatResults(results Results) string {
	var blocks []string
	for _, hit := range results.Primary {
		blocks = append(blocks, fmt.Sprintf("[PRIMARY] %s\n%s", contextHeader(hit), hit.Content))
	}
	for _, hit := range results.Related {
		blocks = append(blocks, fmt.Sprintf("[RELATED] %s\n%s", contextHeader(hit.ChunkHit), hit.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// Sources lists one attribution string per result, in result order, for the
// caller's source display. Related hits are marked as such.
func Sources(results Results) []string {
	out := make([]string, 0, len(results.Primary)+len(results.Related))
	for _, hit := range results.Primary {
		out = append(out, sourceLabel(hit, false))
	}
	for _, hit := range results.Related {
		out = append(out, sourceLabel(hit.ChunkHit, true))
	}
	return out
}

func contextHeader(hit model.ChunkHit) string {
	title := hit.CourseTitle
	if title == "" {
		title = "unknown"
	}
	if hit.LessonNumber != nil {
		return fmt.Sprintf("[%s - Lesson %d]", title, *hit.LessonNumber)
	}
	return fmt.Sprintf("[%s]", title)
}

func sourceLabel(hit model.ChunkHit, related bool) string {
	label := hit.CourseTitle
	if label == "" {
		label = "unknown"
	}
	if related {
		label += " (related)"
	}
	if hit.LessonNumber != nil {
		label += fmt.Sprintf(" - Lesson %d", *hit.LessonNumber)
	}
	return label
}
