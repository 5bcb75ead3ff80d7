package followup

import (
	"math"
	"slices"
	"testing"

	"edi-assistant-go/internal/model"
)

func TestGenerateRulePriority(t *testing.T) {
	tests := []struct {
		name     string
		question string
		passages []model.Passage
		want     string
	}{
		{"projects", "What kind of projects do students do?", nil, "What type of projects will I work on?"},
		{"workload", "Is it hard?", nil, "What is the workload like in EDI?"},
		{"career", "What are the career prospects?", nil, "What are the career outcomes of EDI?"},
		{"admission", "How do I apply?", nil, "What are the admission requirements?"},
		{"deadline", "When is the deadline?", nil, "When does the application period open?"},
		{"visa", "Do I need a visa?", nil, "Will I need a Student’s Pass?"},
		{"default", "Tell me more", nil, "What are the admission requirements?"},
		{"context keywords", "Tell me more", []model.Passage{{Text: "Graduates join industry roles."}}, "What are the career outcomes of EDI?"},
		{"projects beat workload", "Are the projects hard?", nil, "What type of projects will I work on?"},
		{"only top three passages", "Tell me more", []model.Passage{{Text: "x"}, {Text: "y"}, {Text: "z"}, {Text: "studio projects"}}, "What are the admission requirements?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.question, tt.passages)
			if len(got) == 0 || len(got) > MaxSuggestions {
				t.Fatalf("Generate() returned %d suggestions", len(got))
			}
			if got[0] != tt.want {
				t.Errorf("Generate()[0] = %q, want %q", got[0], tt.want)
			}
		})
	}
}

func TestCleanRemovesTokenOverlapDuplicate(t *testing.T) {
	got := Clean([]string{
		"What type of projects will I work on?",
		"What are the tuition fees?",
		"Is there a scholarship?",
	}, "What projects will I work on?")
	want := []string{"What are the tuition fees?", "Is there a scholarship?"}
	if !slices.Equal(got, want) {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCleanRules(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		question   string
		want       []string
	}{
		{
			name:       "exact canonical match",
			candidates: []string{"what are the FEES!!", "Is housing provided?"},
			question:   "What are the fees?",
			want:       []string{"Is housing provided?"},
		},
		{
			name:       "substring containment",
			candidates: []string{"What are the fees", "Tell me about internships"},
			question:   "What are the fees for international students?",
			want:       []string{"Tell me about internships"},
		},
		{
			name:       "pairwise first occurrence wins",
			candidates: []string{"What are the admission requirements?", "What are the admission requirement?", "Do I need a portfolio?"},
			question:   "Hello",
			want:       []string{"What are the admission requirements?", "Do I need a portfolio?"},
		},
		{
			name:       "blank candidates dropped",
			candidates: []string{"", "   ", "?!", "What is the curriculum like?"},
			question:   "",
			want:       []string{"What is the curriculum like?"},
		},
		{
			name:       "unrelated candidates keep order",
			candidates: []string{"What industries do graduates enter?", "Are there electives available?"},
			question:   "What projects will I work on?",
			want:       []string{"What industries do graduates enter?", "Are there electives available?"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.candidates, tt.question); !slices.Equal(got, tt.want) {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanSimilarityMonotonic(t *testing.T) {
	question := "What is the application deadline for EDI?"
	candidates := []string{
		"What is the application deadline for MSc EDI?",
		"What is the applications deadline for EDI programme?",
		"When is the application deadline?",
		"What is the workload like in EDI?",
		"How are projects structured?",
	}
	thresholds := []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.92, 0.95, 0.99, 1.0}

	// 每个候选单独判断：阈值升高后，被保留的候选不会再被移除
	for _, c := range candidates {
		keptBefore := false
		for _, th := range thresholds {
			opts := Options{SimilarityThreshold: th, TokenOverlapThreshold: 2, MinFuzzyLength: DefaultMinFuzzyLength}
			kept := len(CleanWith([]string{c}, question, opts)) == 1
			if keptBefore && !kept {
				t.Errorf("candidate %q kept at a lower threshold but removed at %.2f", c, th)
			}
			keptBefore = kept
		}
	}

	// 整体数量：阈值越低，移除的越多
	prevRemoved := len(candidates) + 1
	for _, th := range thresholds {
		opts := Options{SimilarityThreshold: th, TokenOverlapThreshold: 2, MinFuzzyLength: DefaultMinFuzzyLength}
		removed := 0
		for _, c := range candidates {
			if len(CleanWith([]string{c}, question, opts)) == 0 {
				removed++
			}
		}
		if removed > prevRemoved {
			t.Errorf("threshold %.2f removed %d, more than %d at a lower threshold", th, removed, prevRemoved)
		}
		prevRemoved = removed
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"same", "same", 1},
		{"abc", "xyz", 0},
		{"abcd", "bcde", 0.75},
		{"what are the fees", "what are the feez", 2 * 16.0 / 34.0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCanon(t *testing.T) {
	if got := canon("  Ｗhat’s   the FEE?! "); got != "what s the fee" {
		t.Errorf("canon() = %q", got)
	}
}

func TestNudge(t *testing.T) {
	tests := []struct {
		q    string
		want string
	}{
		{"How do I apply?", "If you're ready, I can guide you through the application process step by step."},
		{"What jobs do graduates get?", "If helpful, I can show how EDI aligns with your career goals."},
		{"Is my background a fit?", "If you like, I can help assess how your background fits the EDI programme."},
		{"Tell me about projects", "I can also walk you through a typical student journey if you're interested."},
		{"How do students cope?", "I can share how students typically manage the workload if that helps."},
		{"hello", "Let me know if you'd like to explore how this programme fits your goals."},
	}
	for _, tt := range tests {
		if got := Nudge(tt.q); got != tt.want {
			t.Errorf("Nudge(%q) = %q, want %q", tt.q, got, tt.want)
		}
	}
}
