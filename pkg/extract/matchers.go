package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"atlas/pkg/model"
)

// candidate is one recognized entity plus the reliability of the match
// method that produced it. Confidence feeds relationship synthesis, it is
// not stored on the entity itself.
type candidate struct {
	entity     model.Entity
	confidence float64
}

type span struct {
	start int
	end   int
}

// spanSet enforces the first-match-wins rule: once a matcher claims a token
// span, later matchers cannot produce an entity from an overlapping span.
type spanSet struct {
	spans []span
}

func (s *spanSet) claim(start, end int) bool {
	for _, sp := range s.spans {
		if start < sp.end && end > sp.start {
			return false
		}
	}
	s.spans = append(s.spans, span{start: start, end: end})
	return true
}

// matcher is a single recognition strategy. Matchers run in a fixed priority
// order over the same chunk and share one claimed-span set.
type matcher interface {
	match(chunk model.Chunk, chunkID string, claimed *spanSet) []candidate
}

// structuralMatcher derives COURSE and LESSON entities from chunk metadata.
// These are the backbone of the graph and are always produced when the
// metadata is present; they claim no text spans.
type structuralMatcher struct{}

func (structuralMatcher) match(chunk model.Chunk, chunkID string, _ *spanSet) []candidate {
	if strings.TrimSpace(chunk.CourseTitle) == "" {
		return nil
	}

	out := []candidate{{
		entity: model.Entity{
			ID:       model.EntityID(chunk.CourseTitle, model.EntityTypeCourse),
			Name:     chunk.CourseTitle,
			Type:     model.EntityTypeCourse,
			ChunkIDs: []string{chunkID},
		},
		confidence: confidenceStructural,
	}}

	if chunk.LessonNumber != nil {
		lessonName := fmt.Sprintf("Lesson %d", *chunk.LessonNumber)
		out = append(out, candidate{
			entity: model.Entity{
				ID:       model.EntityID(chunk.CourseTitle+"_"+lessonName, model.EntityTypeLesson),
				Name:     lessonName,
				Type:     model.EntityTypeLesson,
				ChunkIDs: []string{chunkID},
			},
			confidence: confidenceStructural,
		})
	}

	return out
}

// vocabMatcher matches a curated keyword list case-insensitively against the
// chunk text. One entity per matched keyword, regardless of how often the
// keyword occurs.
type vocabMatcher struct {
	vocab      []string
	entityType model.EntityType
}

func (m vocabMatcher) match(chunk model.Chunk, chunkID string, claimed *spanSet) []candidate {
	content := strings.ToLower(chunk.Content)
	var out []candidate

	for _, keyword := range m.vocab {
		start := findKeyword(content, keyword)
		if start < 0 {
			continue
		}
		if !claimed.claim(start, start+len(keyword)) {
			continue
		}
		out = append(out, candidate{
			entity: model.Entity{
				ID:       model.EntityID(keyword, m.entityType),
				Name:     displayName(keyword),
				Type:     m.entityType,
				ChunkIDs: []string{chunkID},
			},
			confidence: confidenceVocabulary,
		})
	}

	return out
}

// findKeyword returns the byte offset of the first occurrence of keyword in
// content that is not embedded in a larger word, or -1. Keywords may contain
// non-letter runes ("c++", "node.js", "ci/cd"), so the boundary check looks
// at the surrounding runes instead of using \b.
func findKeyword(content, keyword string) int {
	if keyword == "" {
		return -1
	}
	offset := 0
	for {
		idx := strings.Index(content[offset:], keyword)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(keyword)
		if isWordBoundary(content, start, end) {
			return start
		}
		offset = start + 1
	}
}

func isWordBoundary(content string, start, end int) bool {
	if start > 0 {
		prev := rune(content[start-1])
		if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
			return false
		}
	}
	if end < len(content) {
		next := rune(content[end])
		if unicode.IsLetter(next) || unicode.IsDigit(next) {
			return false
		}
	}
	return true
}

// displayName capitalizes each word of a vocabulary keyword for use as an
// entity display name ("machine learning" -> "Machine Learning").
func displayName(keyword string) string {
	words := strings.Fields(keyword)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

var (
	codeSpanPattern  = regexp.MustCompile("```[\\s\\S]*?```|`[^`]+`")
	camelCasePattern = regexp.MustCompile(`\b[a-z]+[A-Z][a-zA-Z]*\b`)
	// \b cannot sit next to an underscore, so the constant shape is spelled
	// out instead of relying on word boundaries alone.
	allCapsPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]*[A-Z0-9]\b`)
)

// codeMatcher recognizes identifiers by lexical shape inside fenced and
// inline code spans: CamelCase identifiers become TOOL entities, ALL_CAPS
// constants become CONCEPT entities. Both carry lower confidence than
// vocabulary matches.
type codeMatcher struct{}

func (codeMatcher) match(chunk model.Chunk, chunkID string, claimed *spanSet) []candidate {
	var out []candidate
	seen := make(map[string]struct{})

	for _, codeSpan := range codeSpanPattern.FindAllStringIndex(chunk.Content, -1) {
		code := chunk.Content[codeSpan[0]:codeSpan[1]]

		for _, loc := range camelCasePattern.FindAllStringIndex(code, -1) {
			name := code[loc[0]:loc[1]]
			if len(name) <= 3 {
				continue
			}
			if !claimed.claim(codeSpan[0]+loc[0], codeSpan[0]+loc[1]) {
				continue
			}
			id := model.EntityID(name, model.EntityTypeTool)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, candidate{
				entity: model.Entity{
					ID:       id,
					Name:     name,
					Type:     model.EntityTypeTool,
					ChunkIDs: []string{chunkID},
				},
				confidence: confidenceCode,
			})
		}

		for _, loc := range allCapsPattern.FindAllStringIndex(code, -1) {
			name := code[loc[0]:loc[1]]
			if len(name) <= 2 {
				continue
			}
			if _, ignored := ignoredAcronyms[name]; ignored {
				continue
			}
			if !claimed.claim(codeSpan[0]+loc[0], codeSpan[0]+loc[1]) {
				continue
			}
			id := model.EntityID(name, model.EntityTypeConcept)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, candidate{
				entity: model.Entity{
					ID:       id,
					Name:     name,
					Type:     model.EntityTypeConcept,
					ChunkIDs: []string{chunkID},
				},
				confidence: confidenceCode,
			})
		}
	}

	return out
}
