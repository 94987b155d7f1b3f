package chunking

import (
	"reflect"
	"strings"
	"testing"
)

const sampleCode = "წიგნი პირველი\nთავი პირველი\n" +
	"მუხლი 1. ზოგადი დებულებები\nტექსტი პირველი\n" +
	"მუხლი 2. მეორე\nტექსტი მეორე"

func TestArticleSplitterBuildsArticlePassages(t *testing.T) {
	passages := NewArticleSplitter(0).Split(sampleCode)
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d: %+v", len(passages), passages)
	}

	first := passages[0]
	if first.ID != "chunk_1" {
		t.Fatalf("expected chunk_1, got %s", first.ID)
	}
	if first.Text != "მუხლი 1. ზოგადი დებულებები\n\nტექსტი პირველი" {
		t.Fatalf("unexpected text: %q", first.Text)
	}
	if first.Metadata.Book != "წიგნი პირველი" || first.Metadata.Chapter != "თავი პირველი" {
		t.Fatalf("unexpected book/chapter: %+v", first.Metadata)
	}
	if first.Metadata.ArticleNumber != "1" || first.Metadata.ArticleTitle != "ზოგადი დებულებები" {
		t.Fatalf("unexpected article header: %+v", first.Metadata)
	}
	if first.Metadata.Source != sourceName {
		t.Fatalf("unexpected source: %s", first.Metadata.Source)
	}
	if passages[1].ID != "chunk_2" || passages[1].Metadata.ArticleNumber != "2" {
		t.Fatalf("unexpected second passage: %+v", passages[1])
	}
}

func TestArticleSplitterDefaultsUnknownBookAndChapter(t *testing.T) {
	passages := NewArticleSplitter(0).Split("მუხლი 7. სათაური\nტექსტი")
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if passages[0].Metadata.Book != unknownBook || passages[0].Metadata.Chapter != unknownChapter {
		t.Fatalf("expected unknown defaults, got %+v", passages[0].Metadata)
	}
}

func TestArticleSplitterSplitsOversizedArticle(t *testing.T) {
	text := "მუხლი 3. გრძელი\n1. პირველი ნაწილი ტექსტი\n2. მეორე ნაწილი ტექსტი"
	passages := NewArticleSplitter(20).Split(text)
	if len(passages) != 2 {
		t.Fatalf("expected 2 sub-chunks, got %d: %+v", len(passages), passages)
	}

	// the empty piece before the first paragraph marker takes sequence 1
	if passages[0].Metadata.SubChunkSeq != 2 || passages[1].Metadata.SubChunkSeq != 3 {
		t.Fatalf("unexpected sequence numbers: %d, %d", passages[0].Metadata.SubChunkSeq, passages[1].Metadata.SubChunkSeq)
	}
	if passages[0].Text != "მუხლი 3. გრძელი (ნაწილი 2)\n\n1. პირველი ნაწილი ტექსტი" {
		t.Fatalf("unexpected sub-chunk text: %q", passages[0].Text)
	}
	if passages[1].ID != "chunk_2" {
		t.Fatalf("expected sequential ids, got %s", passages[1].ID)
	}
}

func TestArticleSplitterNormalizesArticleNumbers(t *testing.T) {
	passages := NewArticleSplitter(0).Split("მუხლი 1\u200b5. ა\nტ\nმუხლი 5¹. ბ\nტ")
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].Metadata.ArticleNumber != "15" {
		t.Fatalf("expected zero-width space removed, got %q", passages[0].Metadata.ArticleNumber)
	}
	if passages[1].Metadata.ArticleNumber != "5¹" {
		t.Fatalf("expected superscript kept, got %q", passages[1].Metadata.ArticleNumber)
	}
}

func TestArticleSplitterEmptyInput(t *testing.T) {
	if got := NewArticleSplitter(0).Split(""); len(got) != 0 {
		t.Fatalf("expected no passages, got %v", got)
	}
	if got := NewArticleSplitter(0).Split("პრეამბულა მუხლის გარეშე"); len(got) != 0 {
		t.Fatalf("expected no passages without article headers, got %v", got)
	}
}

func TestSplitBeforeKeepsLeadingPiece(t *testing.T) {
	got := splitBefore("1. a 2. b", paragraphRe)
	want := []string{"", "1. a ", "2. b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCleanParagraphsRemovesCitations(t *testing.T) {
	in := []string{
		"მუხლი 1. სათაური",
		"საქართველოს 2020 წლის 15 მაისის კანონი №123 – ვებგვერდი, 01.06.2020",
		"ტექსტი. საქართველოს 2020 წლის 15 მაისის კანონი №123 – სსმ, 5\nდანარჩენი",
		"საქართველოს საკონსტიტუციო სასამართლოს 2019 წლის 7 ივნისის გადაწყვეტილება №2/1/1 – ვებგვერდი, 2019",
		"footer",
	}
	got := CleanParagraphs(in)

	if got[0] != in[0] {
		t.Fatalf("clean paragraph changed: %q", got[0])
	}
	if got[1] != "" {
		t.Fatalf("expected law citation removed, got %q", got[1])
	}
	if got[2] != "ტექსტი. დანარჩენი" {
		t.Fatalf("expected inline citation removed, got %q", got[2])
	}
	if got[3] != "" {
		t.Fatalf("expected court citation removed, got %q", got[3])
	}
	if got[4] != "" {
		t.Fatalf("expected last paragraph blanked, got %q", got[4])
	}
	if strings.Join(got, "") == "" {
		t.Fatalf("expected some content to survive")
	}
}
