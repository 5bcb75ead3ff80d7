// Package followup 基于规则生成追问建议，并去除与原问题或彼此重复的建议。
package followup

import (
	"strings"

	"edi-assistant-go/internal/model"
)

// MaxSuggestions 是单次返回的最大建议数。
const MaxSuggestions = 3

type rule struct {
	name      string
	keywords  []string
	questions []string
}

// 规则按优先级排列，第一条命中的规则生效。
var rules = []rule{
	{
		name:     "projects",
		keywords: []string{"project", "course", "module", "curriculum", "studio"},
		questions: []string{
			"What type of projects will I work on?",
			"What courses are included in the programme?",
			"How are projects structured?",
		},
	},
	{
		name:     "workload",
		keywords: []string{"workload", "challenge", "hard", "rigor", "rigour", "intensity", "stress"},
		questions: []string{
			"What is the workload like in EDI?",
			"How do students cope in the programme?",
			"How many modules do students take each semester?",
		},
	},
	{
		name:     "career",
		keywords: []string{"career", "job", "value", "worth", "industry", "outcome"},
		questions: []string{
			"What are the career outcomes of EDI?",
			"What skills will I gain from the programme?",
			"What industries do graduates enter?",
		},
	},
	{
		name:     "admission",
		keywords: []string{"apply", "admission", "suitable", "requirement", "portfolio", "background"},
		questions: []string{
			"What are the admission requirements?",
			"Do I need a portfolio for EDI?",
			"What backgrounds are accepted?",
		},
	},
	{
		name:     "deadline",
		keywords: []string{"deadline", "intake", "closing date", "application period"},
		questions: []string{
			"When does the application period open?",
			"When does the programme start?",
			"What documents should I prepare for my application?",
		},
	},
	{
		name:     "visa",
		keywords: []string{"visa", "student's pass", "student’s pass", "international"},
		questions: []string{
			"Will I need a Student’s Pass?",
			"When will I receive visa instructions?",
			"What support is available for international students?",
		},
	},
}

var defaultQuestions = []string{
	"What are the admission requirements?",
	"What is the curriculum like?",
	"What career opportunities does EDI lead to?",
}

// Generate 根据问题与前三个检索分块的文本选择一组追问，不调用模型。
func Generate(question string, passages []model.Passage) []string {
	var b strings.Builder
	b.WriteString(strings.ToLower(question))
	for i, p := range passages {
		if i == 3 {
			break
		}
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(p.Text))
	}
	combined := b.String()

	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(combined, k) {
				return limit(r.questions)
			}
		}
	}
	return limit(defaultQuestions)
}

func limit(qs []string) []string {
	out := make([]string, min(len(qs), MaxSuggestions))
	copy(out, qs)
	return out
}

// Nudge 根据问题所处的阶段返回一句引导下一步的提示。
func Nudge(question string) string {
	q := strings.ToLower(question)
	has := func(keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(q, k) {
				return true
			}
		}
		return false
	}

	switch {
	case has("apply", "admission", "deadline", "requirement"):
		return "If you're ready, I can guide you through the application process step by step."
	case has("career", "job", "outcome"):
		return "If helpful, I can show how EDI aligns with your career goals."
	case has("suitable", "fit", "background"):
		return "If you like, I can help assess how your background fits the EDI programme."
	case has("project", "learning"):
		return "I can also walk you through a typical student journey if you're interested."
	case has("workload", "stress", "cope"):
		return "I can share how students typically manage the workload if that helps."
	default:
		return "Let me know if you'd like to explore how this programme fits your goals."
	}
}
