package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain title unchanged",
			input:    "Attention Is All You Need",
			expected: "Attention Is All You Need",
		},
		{
			name:     "trailing ellipsis removed",
			input:    "The AI revolution: Transforming the modern workplace...",
			expected: "The AI revolution: Transforming the modern workplace",
		},
		{
			name:     "double dot truncation removed",
			input:    "Large language models in medicine..",
			expected: "Large language models in medicine",
		},
		{
			name:     "period after short word treated as cut",
			input:    "Economic effects of generative AI on.",
			expected: "Economic effects of generative AI on",
		},
		{
			name:     "sentence-final period kept",
			input:    "A survey of reinforcement learning methods.",
			expected: "A survey of reinforcement learning methods.",
		},
		{
			name:     "Al fixed before keyword",
			input:    "Al agents in the enterprise",
			expected: "AI agents in the enterprise",
		},
		{
			name:     "Generative Al fixed",
			input:    "Generative Al at work",
			expected: "Generative AI at work",
		},
		{
			name:     "Al- prefix fixed",
			input:    "Al-driven drug discovery",
			expected: "AI-driven drug discovery",
		},
		{
			name:     "Gpts casing fixed",
			input:    "Gpts are GPTs",
			expected: "GPTs are GPTs",
		},
		{
			name:     "NBER working paper number stripped",
			input:    "Generative AI at Work (No. w34034)",
			expected: "Generative AI at Work",
		},
		{
			name:     "NBER bracket marker stripped",
			input:    "Generative AI at Work [NBER w34034]",
			expected: "Generative AI at Work",
		},
		{
			name:     "working paper marker stripped",
			input:    "Market design for AI (Working Paper)",
			expected: "Market design for AI",
		},
		{
			name:     "smart quotes and dashes normalized",
			input:    "“Deep” learning — a review – part one",
			expected: `"Deep" learning - a review - part one`,
		},
		{
			name:     "whitespace collapsed and trailing punctuation trimmed",
			input:    "  Protein   folding\twith    transformers ;",
			expected: "Protein folding with transformers",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestKeyTerms(t *testing.T) {
	t.Run("drops stop words and short tokens", func(t *testing.T) {
		terms := KeyTerms("The Impact of AI on the Labor Market")

		assert.Contains(t, terms, "impact")
		assert.Contains(t, terms, "labor")
		assert.Contains(t, terms, "market")
		assert.NotContains(t, terms, "the")
		assert.NotContains(t, terms, "of")
		assert.NotContains(t, terms, "on")
		// "AI" is only two characters; exact token matching drops it.
		assert.NotContains(t, terms, "ai")
	})

	t.Run("strips punctuation but keeps hyphens", func(t *testing.T) {
		terms := KeyTerms("Self-supervised learning: methods, and applications!")

		assert.Contains(t, terms, "self-supervised")
		assert.Contains(t, terms, "learning")
		assert.Contains(t, terms, "methods")
		assert.Contains(t, terms, "applications")
	})

	t.Run("empty title yields empty set", func(t *testing.T) {
		assert.Empty(t, KeyTerms(""))
	})
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{
			name: "identical titles",
			a:    "Deep residual learning for image recognition",
			b:    "Deep residual learning for image recognition",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "case differences ignored",
			a:    "DEEP RESIDUAL LEARNING FOR IMAGE RECOGNITION",
			b:    "deep residual learning for image recognition",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "truncated variant scores above threshold",
			a:    "Generative AI at work: evidence from customer support...",
			b:    "Generative AI at Work: Evidence from Customer Support Agents",
			min:  0.5,
			max:  1.0,
		},
		{
			name: "unrelated titles score low",
			a:    "Protein structure prediction with AlphaFold",
			b:    "Monetary policy and housing markets",
			min:  0.0,
			max:  0.0,
		},
		{
			name: "empty title scores zero",
			a:    "",
			b:    "Deep learning",
			min:  0.0,
			max:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}

	t.Run("symmetric", func(t *testing.T) {
		a := "Language models are few-shot learners"
		b := "Language models as few-shot learners in practice"
		assert.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-9)
	})
}
