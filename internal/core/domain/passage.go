package domain

import "strings"

// PassageMetadata carries the structural position of a passage inside the code.
type PassageMetadata struct {
	Source        string `json:"source" yaml:"source"`
	Book          string `json:"book" yaml:"book"`
	Chapter       string `json:"chapter" yaml:"chapter"`
	ArticleNumber string `json:"article_number" yaml:"article_number"`
	ArticleTitle  string `json:"article_title" yaml:"article_title"`
	SubChunkSeq   int    `json:"sub_chunk_seq,omitempty" yaml:"sub_chunk_seq,omitempty"`
}

// Map flattens metadata into the string map shape vector stores persist.
func (m PassageMetadata) Map() map[string]any {
	out := map[string]any{
		"source":         m.Source,
		"book":           m.Book,
		"chapter":        m.Chapter,
		"article_number": m.ArticleNumber,
		"article_title":  m.ArticleTitle,
	}
	if m.SubChunkSeq > 0 {
		out["sub_chunk_seq"] = m.SubChunkSeq
	}
	return out
}

// Passage is the atomic retrievable unit. Text doubles as the dedup key.
type Passage struct {
	ID       string          `json:"id,omitempty" yaml:"id,omitempty"`
	Text     string          `json:"text" yaml:"text"`
	Metadata PassageMetadata `json:"metadata" yaml:"metadata"`
}

// Corpus is the ordered, read-only passage collection loaded once per process.
type Corpus struct {
	passages []Passage
	byText   map[string]int
}

func NewCorpus(passages []Passage) *Corpus {
	c := &Corpus{
		passages: make([]Passage, 0, len(passages)),
		byText:   make(map[string]int, len(passages)),
	}
	for _, p := range passages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		if _, seen := c.byText[p.Text]; seen {
			continue
		}
		c.byText[p.Text] = len(c.passages)
		c.passages = append(c.passages, p)
	}
	return c
}

func (c *Corpus) Passages() []Passage {
	if c == nil {
		return nil
	}
	return c.passages
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.passages)
}

// Lookup finds the passage with exactly this text.
func (c *Corpus) Lookup(text string) (Passage, bool) {
	if c == nil {
		return Passage{}, false
	}
	idx, ok := c.byText[text]
	if !ok {
		return Passage{}, false
	}
	return c.passages[idx], true
}

// Texts returns passage texts in corpus order.
func (c *Corpus) Texts() []string {
	out := make([]string, 0, c.Len())
	for _, p := range c.Passages() {
		out = append(out, p.Text)
	}
	return out
}
