package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

const (
	DefaultMaxChunkRunes = 1200

	sourceName     = "საქართველოს სამოქალაქო კოდექსი"
	unknownBook    = "უცნობი წიგნი"
	unknownChapter = "უცნობი თავი"
)

var (
	articleStartRe  = regexp.MustCompile(`მუხლი [\d\x{200b}¹²³⁴⁵⁶⁷⁸⁹⁰]+`)
	articleHeaderRe = regexp.MustCompile(`მუხლი ([\d\x{200b}¹²³⁴⁵⁶⁷⁸⁹⁰]+)\.?\s*(.*)`)
	headerLineRe    = regexp.MustCompile(`მუხლი [\d\x{200b}¹²³⁴⁵⁶⁷⁸⁹⁰]+\.?\s*.*\n?`)
	bookRe          = regexp.MustCompile(`წიგნი\s+[^\s]+`)
	chapterRe       = regexp.MustCompile(`თავი\s+[^\s]+`)
	paragraphRe     = regexp.MustCompile(`\d+\.\s|[ა-ი]\)\s`)
)

// ArticleSplitter turns the cleaned civil code text into article passages.
// Articles longer than MaxChunkRunes are split on numbered paragraphs.
type ArticleSplitter struct {
	MaxChunkRunes int
}

func NewArticleSplitter(maxChunkRunes int) *ArticleSplitter {
	if maxChunkRunes <= 0 {
		maxChunkRunes = DefaultMaxChunkRunes
	}
	return &ArticleSplitter{MaxChunkRunes: maxChunkRunes}
}

func (s *ArticleSplitter) Split(text string) []domain.Passage {
	if text == "" {
		return nil
	}

	out := make([]domain.Passage, 0, 64)
	book, chapter := unknownBook, unknownChapter
	for _, piece := range splitBefore(text, articleStartRe) {
		if strings.TrimSpace(piece) == "" {
			continue
		}

		// Markers are tracked per piece, so a heading that trails an article
		// body is picked up before that article is emitted.
		if m := bookRe.FindString(piece); m != "" {
			book = m
		}
		if m := chapterRe.FindString(piece); m != "" {
			chapter = m
		}

		header := articleHeaderRe.FindStringSubmatch(piece)
		if header == nil {
			continue
		}
		number := strings.ReplaceAll(header[1], "\u200b", "")
		title := strings.TrimSpace(header[2])

		body := piece
		if loc := headerLineRe.FindStringIndex(piece); loc != nil {
			body = piece[:loc[0]] + piece[loc[1]:]
		}
		body = strings.TrimSpace(body)

		meta := domain.PassageMetadata{
			Source:        sourceName,
			Book:          book,
			Chapter:       chapter,
			ArticleNumber: number,
			ArticleTitle:  title,
		}
		headerText := fmt.Sprintf("მუხლი %s. %s", number, title)

		if utf8.RuneCountInString(body) <= s.MaxChunkRunes {
			out = append(out, domain.Passage{
				Text:     headerText + "\n\n" + body,
				Metadata: meta,
			})
			continue
		}

		for i, part := range splitBefore(body, paragraphRe) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			partMeta := meta
			partMeta.SubChunkSeq = i + 1
			out = append(out, domain.Passage{
				Text:     fmt.Sprintf("%s (ნაწილი %d)\n\n%s", headerText, i+1, part),
				Metadata: partMeta,
			})
		}
	}

	for i := range out {
		out[i].ID = fmt.Sprintf("chunk_%d", i+1)
	}
	return out
}

// splitBefore cuts text at the start of every match, keeping the match with
// the piece that follows it. The leading piece is always present, possibly
// empty, so piece positions stay stable.
func splitBefore(text string, re *regexp.Regexp) []string {
	matches := re.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(matches)+1)
	prev := 0
	for _, m := range matches {
		out = append(out, text[prev:m[0]])
		prev = m[0]
	}
	return append(out, text[prev:])
}
