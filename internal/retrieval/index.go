package retrieval

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// ErrNoDocuments is returned when an index would be built from nothing.
var ErrNoDocuments = errors.New("no reference documents")

// Document is one source file of reference material.
type Document struct {
	Source string
	Text   string
}

// Passage is a retrieved chunk of reference material.
type Passage struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

type chunk struct {
	source string
	text   string
	tf     map[string]int
}

// Index is an immutable TF-IDF index over document chunks.
type Index struct {
	chunks []chunk
	idf    map[string]float64
	norms  []float64
}

// Build chunks the documents and indexes every chunk.
func Build(docs []Document, chunkSize, chunkOverlap int) (*Index, error) {
	ix := &Index{idf: make(map[string]float64)}
	df := make(map[string]int)

	for _, d := range docs {
		for _, text := range Split(d.Text, chunkSize, chunkOverlap) {
			tf := termFreq(tokenize(text))
			if len(tf) == 0 {
				continue
			}
			for term := range tf {
				df[term]++
			}
			ix.chunks = append(ix.chunks, chunk{source: d.Source, text: text, tf: tf})
		}
	}
	if len(ix.chunks) == 0 {
		return nil, ErrNoDocuments
	}

	n := float64(len(ix.chunks))
	for term, count := range df {
		ix.idf[term] = math.Log(1 + n/float64(count))
	}

	ix.norms = make([]float64, len(ix.chunks))
	for i, c := range ix.chunks {
		var sum float64
		for term, count := range c.tf {
			w := float64(count) * ix.idf[term]
			sum += w * w
		}
		ix.norms[i] = math.Sqrt(sum)
	}
	return ix, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Search returns up to k passages by cosine similarity to the query.
// Chunks sharing no terms with the query are never returned.
func (ix *Index) Search(query string, k int) []Passage {
	if k <= 0 {
		return nil
	}
	qtf := termFreq(tokenize(query))

	var qnorm float64
	for term, count := range qtf {
		w := float64(count) * ix.idf[term]
		qnorm += w * w
	}
	if qnorm == 0 {
		return nil
	}
	qnorm = math.Sqrt(qnorm)

	type hit struct {
		idx   int
		score float64
	}
	var hits []hit
	for i, c := range ix.chunks {
		var dot float64
		for term, qc := range qtf {
			if cc, ok := c.tf[term]; ok {
				idf := ix.idf[term]
				dot += float64(qc) * idf * float64(cc) * idf
			}
		}
		if dot == 0 || ix.norms[i] == 0 {
			continue
		}
		hits = append(hits, hit{idx: i, score: dot / (qnorm * ix.norms[i])})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]Passage, len(hits))
	for i, h := range hits {
		c := ix.chunks[h.idx]
		out[i] = Passage{Source: c.source, Text: c.text, Score: h.score}
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "with": true,
	"that": true, "this": true, "from": true, "use": true, "code": true,
	"of": true, "in": true, "to": true, "is": true, "or": true, "an": true,
	"be": true, "as": true, "on": true, "it": true, "by": true, "eg": true,
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func termFreq(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
