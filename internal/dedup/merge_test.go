package dedup

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "Deep Learning",
			expected: "deep learning",
		},
		{
			name:     "punctuation stripped",
			input:    "Attention Is All You Need!",
			expected: "attention is all you need",
		},
		{
			name:     "extra whitespace collapsed",
			input:    "  Graph   Neural\tNetworks  ",
			expected: "graph neural networks",
		},
		{
			name:     "digits kept",
			input:    "GPT-4 Technical Report",
			expected: "gpt4 technical report",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "only punctuation",
			input:    "?!;",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestMergeByDOI(t *testing.T) {
	papers := []domain.Paper{
		{
			Title:           "Attention Is All You Need",
			DOI:             "https://doi.org/10.1000/attn",
			Year:            2017,
			CitationCount:   90000,
			SourceProviders: []domain.SourceType{domain.SourceTypeSemanticScholar},
		},
		{
			Title:           "Attention is all you need.",
			DOI:             "10.1000/ATTN",
			Year:            2017,
			CitationCount:   85000,
			Abstract:        "The dominant sequence transduction models.",
			PDFURL:          "https://example.org/attn.pdf",
			SourceProviders: []domain.SourceType{domain.SourceTypeCrossref},
		},
	}

	merged := Merge(papers)
	require.Len(t, merged, 1)

	paper := merged[0]
	assert.Equal(t, 90000, paper.CitationCount)
	assert.Equal(t, "The dominant sequence transduction models.", paper.Abstract)
	assert.Equal(t, "https://example.org/attn.pdf", paper.PDFURL)
	assert.Equal(t,
		[]domain.SourceType{domain.SourceTypeCrossref, domain.SourceTypeSemanticScholar},
		paper.SourceProviders)
}

func TestMergeByTitleAndYear(t *testing.T) {
	papers := []domain.Paper{
		{Title: "Graph Neural Networks: A Review", Year: 2020, CitationCount: 10},
		{Title: "graph neural networks — a review", Year: 2020, CitationCount: 25},
		{Title: "Graph Neural Networks: A Review", Year: 2021, CitationCount: 5},
	}

	merged := Merge(papers)

	// Same title but different year stays separate.
	require.Len(t, merged, 2)
	assert.Equal(t, 2020, merged[0].Year)
	assert.Equal(t, 25, merged[0].CitationCount)
	assert.Equal(t, 2021, merged[1].Year)
}

func TestMergeDOIPrecedesTitleMatch(t *testing.T) {
	// Different titles, same DOI: still one paper.
	papers := []domain.Paper{
		{Title: "BERT: Pre-training of Deep Bidirectional Transformers", DOI: "10.1000/bert", Year: 2018},
		{Title: "BERT", DOI: "10.1000/bert", Year: 2019},
	}

	merged := Merge(papers)
	require.Len(t, merged, 1)
	assert.Equal(t, "BERT: Pre-training of Deep Bidirectional Transformers", merged[0].Title)
	// Earliest year wins when providers disagree.
	assert.Equal(t, 2018, merged[0].Year)
}

func TestMergeKeepsDistinctPapers(t *testing.T) {
	papers := []domain.Paper{
		{Title: "Paper One", DOI: "10.1/a", Year: 2020},
		{Title: "Paper Two", DOI: "10.1/b", Year: 2020},
		{Title: "Paper Three", Year: 2021},
	}

	merged := Merge(papers)
	assert.Len(t, merged, 3)
}

func TestMergeIdempotent(t *testing.T) {
	papers := []domain.Paper{
		{Title: "A", DOI: "10.1/a", Year: 2020, CitationCount: 3},
		{Title: "A", DOI: "10.1/a", Year: 2020, CitationCount: 7},
		{Title: "B", Year: 2021},
	}

	once := Merge(papers)
	twice := Merge(once)
	assert.Equal(t, once, twice)
}

func TestMergeOrderIndependent(t *testing.T) {
	papers := []domain.Paper{
		{
			Title:           "Scaling Laws for Neural Language Models",
			Year:            2020,
			CitationCount:   500,
			Venue:           "arXiv",
			SourceProviders: []domain.SourceType{domain.SourceTypeArXiv},
		},
		{
			Title:           "Scaling Laws for Neural Language Models",
			Year:            2020,
			CitationCount:   620,
			Abstract:        "We study empirical scaling laws.",
			SourceProviders: []domain.SourceType{domain.SourceTypeSemanticScholar},
		},
		{
			Title:           "Emergent Abilities of Large Language Models",
			DOI:             "10.1000/emergent",
			Year:            2022,
			CitationCount:   120,
			SourceProviders: []domain.SourceType{domain.SourceTypeSemanticScholar},
		},
		{
			Title:           "Emergent abilities of large language models",
			DOI:             "https://doi.org/10.1000/EMERGENT",
			Year:            2022,
			CitationCount:   140,
			SourceProviders: []domain.SourceType{domain.SourceTypeCrossref},
		},
		{
			Title:           "An Unrelated Survey",
			Year:            2019,
			SourceProviders: []domain.SourceType{domain.SourceTypePubMed},
		},
	}

	want := Merge(papers)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]domain.Paper, len(papers))
		copy(shuffled, papers)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, Merge(shuffled))
	}
}

func TestMergeEmptyInput(t *testing.T) {
	assert.Empty(t, Merge(nil))
	assert.Empty(t, Merge([]domain.Paper{}))
}
