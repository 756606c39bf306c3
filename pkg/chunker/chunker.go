// Package chunker turns course documents into token-bounded chunks carrying
// the course and lesson metadata the vector index and the knowledge graph
// both key on.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"atlas/pkg/model"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Chunker splits course text into sentence-aligned chunks of at most
// MaxTokens tokens each.
type Chunker struct {
	enc       *tiktoken.Tiktoken
	maxTokens int
}

// NewChunkerParams configures a Chunker. Encoding defaults to cl100k_base,
// MaxTokens to 800.
type NewChunkerParams struct {
	Encoding  string
	MaxTokens int
}

// NewChunker creates a Chunker with the given tiktoken encoding.
func NewChunker(params NewChunkerParams) (*Chunker, error) {
	encoding := params.Encoding
	if encoding == "" {
		encoding = DefaultEncoding
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading token encoding %q: %w", encoding, err)
	}
	return &Chunker{enc: enc, maxTokens: maxTokens}, nil
}

var lessonHeaderPattern = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ChunkCourseDocument parses a course document and chunks its lesson
// content. The expected format is a metadata header
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
// followed by "Lesson N: <title>" sections, each optionally starting with a
// "Lesson Link:" line. Text before the first lesson marker is chunked
// without a lesson number. Chunk indexes run sequentially over the whole
// document, so chunk ids stay stable across re-ingestion.
func (c *Chunker) ChunkCourseDocument(text string) (model.Course, []model.Chunk, error) {
	course, body := parseCourseHeader(text)
	if course.Title == "" {
		return model.Course{}, nil, fmt.Errorf("course document has no Course Title header")
	}

	var chunks []model.Chunk
	appendChunks := func(content string, lessonNumber *int) {
		for _, piece := range c.splitByTokens(content) {
			chunks = append(chunks, model.Chunk{
				Content:      piece,
				CourseTitle:  course.Title,
				LessonNumber: lessonNumber,
				ChunkIndex:   len(chunks),
			})
		}
	}

	var currentLesson *model.Lesson
	var buffer []string
	flush := func() {
		content := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = nil
		if content == "" {
			return
		}
		if currentLesson == nil {
			appendChunks(content, nil)
			return
		}
		n := currentLesson.Number
		appendChunks(content, &n)
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && len(buffer) == 0 {
			continue
		}

		if m := lessonHeaderPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			course.Lessons = append(course.Lessons, model.Lesson{
				Number: number,
				Title:  strings.TrimSpace(m[2]),
			})
			currentLesson = &course.Lessons[len(course.Lessons)-1]
			continue
		}
		if currentLesson != nil && currentLesson.Link == "" && len(buffer) == 0 {
			if link, ok := strings.CutPrefix(trimmed, "Lesson Link:"); ok {
				currentLesson.Link = strings.TrimSpace(link)
				continue
			}
		}

		buffer = append(buffer, line)
	}
	flush()

	return course, chunks, nil
}

// parseCourseHeader consumes the leading metadata lines and returns the
// course plus the remaining document body.
func parseCourseHeader(text string) (model.Course, string) {
	var course model.Course
	lines := strings.Split(strings.TrimSpace(text), "\n")

	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if value, ok := strings.CutPrefix(trimmed, "Course Title:"); ok {
			course.Title = strings.TrimSpace(value)
			continue
		}
		if value, ok := strings.CutPrefix(trimmed, "Course Link:"); ok {
			course.Link = strings.TrimSpace(value)
			continue
		}
		if value, ok := strings.CutPrefix(trimmed, "Course Instructor:"); ok {
			course.Instructor = strings.TrimSpace(value)
			continue
		}
		break
	}

	return course, strings.Join(lines[i:], "\n")
}

// splitByTokens groups consecutive sentences into pieces of at most
// maxTokens tokens. A single sentence over the budget becomes its own piece
// rather than being cut mid-sentence.
func (c *Chunker) splitByTokens(text string) []string {
	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var pieces []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pieces = append(pieces, strings.Join(current, " "))
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := len(c.enc.Encode(sentence, nil, nil))
		if currentTokens+tokens > c.maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return pieces
}
