package router

import (
	"fmt"
	"regexp"
	"strings"

	"edi-assistant-go/internal/model"
)

// HardRequirementSignals 表示上下文明确声明某项为必需。
// 与 PositioningSignals 互不包含（任一短语都不是另一组短语的子串），由测试保证。
var HardRequirementSignals = []string{
	"is required",
	"are required",
	"is mandatory",
	"are mandatory",
	"is compulsory",
	"are compulsory",
	"must submit",
	"must provide",
	"must have",
	"must be submitted",
	"is a requirement",
	"is a prerequisite",
	"are prerequisites",
}

// PositioningSignals 表示上下文将某项定位为可选或综合评估的一部分。
var PositioningSignals = []string{
	"not required",
	"not mandatory",
	"not compulsory",
	"not necessary",
	"not essential",
	"not a prerequisite",
	"not a requirement",
	"optional",
	"holistic",
	"encouraged",
	"recommended",
	"an advantage",
	"advantageous",
	"preferred but",
}

var (
	thingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(is|are)\s+(an?\s+|the\s+|any\s+)?(?P<thing>.+?)\s+(required|mandatory|compulsory|necessary|needed|a\s+requirement|a\s+prerequisite|prerequisites)\b`),
		regexp.MustCompile(`(?i)\b(do|does)\s+(i|you|one|applicants?|students?)\s+need\s+(to\s+(have|submit|provide|take)\s+)?(an?\s+|the\s+|any\s+)?(?P<thing>.+?)\s*[?.!]*\s*$`),
		regexp.MustCompile(`(?i)\bmust\s+i\s+(have|submit|provide|take)\s+(an?\s+|the\s+|any\s+)?(?P<thing>.+?)\s*[?.!]*\s*$`),
		regexp.MustCompile(`(?i)\bneed\s+to\s+(have|submit|provide|take)\s+(an?\s+|the\s+|any\s+)?(?P<thing>.+?)\s*[?.!]*\s*$`),
	}
	thingSuffix   = regexp.MustCompile(`(?i)\s+(for|to)\s+(the\s+)?(admission|admissions|apply|application|edi|msc\s+edi|programme|program|msc)(\s+.*)?$`)
	sentenceSplit = regexp.MustCompile(`[.!?\n]+`)
	clauseSplit   = regexp.MustCompile(`[;:,]+`)
	negationWord  = regexp.MustCompile(`\b(no|not|neither|nor|never|none)\b`)
	trailingPunct = regexp.MustCompile(`[\s?.!,;:]+$`)
)

// ExtractRequirementThing 提取问题中被询问是否必需的对象，例如 "Is a portfolio required?" 得到 "portfolio"。
// 无法提取时返回空串。
func ExtractRequirementThing(q string) string {
	for _, re := range thingPatterns {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		thing := thingSuffix.ReplaceAllString(m[re.SubexpIndex("thing")], "")
		thing = strings.TrimSpace(trailingPunct.ReplaceAllString(thing, ""))
		if thing != "" {
			return thing
		}
	}
	return ""
}

// AnswerRequirement 根据检索上下文中的词面信号直接回答 "X 是否必需"。
// 硬性信号优先，其次是定位信号，两者都没有时返回通用回复。
func AnswerRequirement(q string, passages []model.Passage) string {
	thing := ExtractRequirementThing(q)
	ctx := strings.ToLower(scopedContext(joinPassages(passages), thing))
	if thing == "" {
		thing = "that"
	}

	hard, negated := scanHardSignals(ctx)
	if hard {
		return fmt.Sprintf("Yes, %s is required for admission to MSc Engineering Design & Innovation (EDI).", thing)
	}
	if negated || (ctx != "" && hasAnySignal(ctx, PositioningSignals)) {
		return fmt.Sprintf("No, %s is not a formal requirement for admission to MSc Engineering Design & Innovation (EDI). "+
			"Admissions are usually assessed holistically.", thing)
	}
	return RequirementFallbackGeneric
}

func joinPassages(passages []model.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// scopedContext 只保留提到 thing 的句子；没有任何句子提到时返回完整上下文。
func scopedContext(ctx, thing string) string {
	if ctx == "" || thing == "" {
		return ctx
	}
	needle := strings.ToLower(thing)
	var kept []string
	for _, s := range sentenceSplit.Split(ctx, -1) {
		if strings.Contains(strings.ToLower(s), needle) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return ctx
	}
	return strings.Join(kept, ". ")
}

func hasAnySignal(text string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// scanHardSignals 逐子句查找硬性信号。
// 同一子句中信号之前出现否定词（如 "No portfolio is required"、"Neither A nor B is required"）时，
// 该命中记为 negated，按定位信号处理。
func scanHardSignals(ctx string) (hard, negated bool) {
	if ctx == "" {
		return false, false
	}
	for _, sentence := range sentenceSplit.Split(ctx, -1) {
		for _, clause := range clauseSplit.Split(sentence, -1) {
			for _, sig := range HardRequirementSignals {
				rest := clause
				offset := 0
				for {
					i := strings.Index(rest, sig)
					if i < 0 {
						break
					}
					if negationWord.MatchString(clause[:offset+i]) {
						negated = true
					} else {
						return true, negated
					}
					offset += i + len(sig)
					rest = clause[offset:]
				}
			}
		}
	}
	return false, negated
}
