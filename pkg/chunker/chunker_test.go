package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string(nil),
		},
		{
			name: "single sentence",
			text: "Hello world.",
			want: []string{"Hello world."},
		},
		{
			name: "multiple sentences",
			text: "Hello world. This is a test! How are you?",
			want: []string{
				"Hello world.",
				"This is a test!",
				"How are you?",
			},
		},
		{
			name: "blank lines end sentences",
			text: "First paragraph\n\nSecond paragraph.",
			want: []string{
				"First paragraph",
				"Second paragraph.",
			},
		},
		{
			name: "multi-line sentence",
			text: "This is a long\nsentence that spans\nmultiple lines.",
			want: []string{"This is a long sentence that spans multiple lines."},
		},
		{
			name: "trailing quote stays with sentence",
			text: `She said "stop here." Then left.`,
			want: []string{
				`She said "stop here."`,
				"Then left.",
			},
		},
		{
			name: "numeric listing stays in one sentence",
			text: "Today we discuss three points. 1. First item 2. Second item 3. Third item. Done!",
			want: []string{
				"Today we discuss three points.",
				"1. First item 2. Second item 3. Third item.",
				"Done!",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIntoSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitIntoSentences() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

const sampleDocument = `Course Title: Web Development
Course Link: https://example.com/webdev
Course Instructor: Ada Lovelace

Welcome to the course. This introduction has no lesson number.

Lesson 0: Getting Started
Lesson Link: https://example.com/webdev/0
We will set up python and flask. Installation takes a while.

Lesson 1: Routing
Routes map URLs to handlers. Each route has a name.
`

func TestChunkCourseDocument(t *testing.T) {
	c, err := NewChunker(NewChunkerParams{MaxTokens: 800})
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	course, chunks, err := c.ChunkCourseDocument(sampleDocument)
	if err != nil {
		t.Fatalf("ChunkCourseDocument() error = %v", err)
	}

	if course.Title != "Web Development" {
		t.Errorf("course.Title = %q, want %q", course.Title, "Web Development")
	}
	if course.Link != "https://example.com/webdev" {
		t.Errorf("course.Link = %q", course.Link)
	}
	if course.Instructor != "Ada Lovelace" {
		t.Errorf("course.Instructor = %q", course.Instructor)
	}

	if len(course.Lessons) != 2 {
		t.Fatalf("len(course.Lessons) = %d, want 2", len(course.Lessons))
	}
	if course.Lessons[0].Number != 0 || course.Lessons[0].Title != "Getting Started" {
		t.Errorf("Lessons[0] = %+v", course.Lessons[0])
	}
	if course.Lessons[0].Link != "https://example.com/webdev/0" {
		t.Errorf("Lessons[0].Link = %q", course.Lessons[0].Link)
	}
	if course.Lessons[1].Number != 1 || course.Lessons[1].Title != "Routing" {
		t.Errorf("Lessons[1] = %+v", course.Lessons[1])
	}

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3: %+v", len(chunks), chunks)
	}

	// Preamble chunk has no lesson number.
	if chunks[0].LessonNumber != nil {
		t.Errorf("chunks[0].LessonNumber = %v, want nil", *chunks[0].LessonNumber)
	}
	if !strings.Contains(chunks[0].Content, "Welcome to the course.") {
		t.Errorf("chunks[0].Content = %q", chunks[0].Content)
	}

	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 0 {
		t.Errorf("chunks[1].LessonNumber = %v, want 0", chunks[1].LessonNumber)
	}
	if strings.Contains(chunks[1].Content, "Lesson Link") {
		t.Errorf("lesson link leaked into content: %q", chunks[1].Content)
	}
	if chunks[2].LessonNumber == nil || *chunks[2].LessonNumber != 1 {
		t.Errorf("chunks[2].LessonNumber = %v, want 1", chunks[2].LessonNumber)
	}

	// Indexes run over the whole document and produce stable ids.
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunks[%d].ChunkIndex = %d", i, chunk.ChunkIndex)
		}
		if chunk.CourseTitle != "Web Development" {
			t.Errorf("chunks[%d].CourseTitle = %q", i, chunk.CourseTitle)
		}
	}
	if got := chunks[0].ID(); got != "Web_Development_0" {
		t.Errorf("chunks[0].ID() = %q, want Web_Development_0", got)
	}
}

func TestChunkCourseDocumentTokenBudget(t *testing.T) {
	c, err := NewChunker(NewChunkerParams{MaxTokens: 8})
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	doc := "Course Title: Tiny\n\nLesson 0: All\nFirst sentence here. Second sentence here. Third sentence here."
	_, chunks, err := c.ChunkCourseDocument(doc)
	if err != nil {
		t.Fatalf("ChunkCourseDocument() error = %v", err)
	}

	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want the budget to split sentences apart", len(chunks))
	}
	for i, chunk := range chunks {
		if !strings.HasSuffix(chunk.Content, ".") {
			t.Errorf("chunks[%d] does not end at a sentence boundary: %q", i, chunk.Content)
		}
	}
}

func TestChunkCourseDocumentMissingTitle(t *testing.T) {
	c, err := NewChunker(NewChunkerParams{})
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	if _, _, err := c.ChunkCourseDocument("Just some text with no header."); err == nil {
		t.Error("ChunkCourseDocument() error = nil, want error for missing title")
	}
}
