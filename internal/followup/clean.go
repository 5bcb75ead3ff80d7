package followup

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSimilarityThreshold 为模糊相似度阈值，ratio 大于该值视为重复。
	DefaultSimilarityThreshold = 0.92
	// DefaultTokenOverlapThreshold 为内容词重合度阈值，相对较小的词集计算。
	DefaultTokenOverlapThreshold = 0.90
	// DefaultMinFuzzyLength 为参与模糊比较的最小规范化长度。
	DefaultMinFuzzyLength = 15
)

// Options 控制去重的各项阈值。
type Options struct {
	SimilarityThreshold   float64
	TokenOverlapThreshold float64
	MinFuzzyLength        int
}

// DefaultOptions 返回默认阈值。
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold:   DefaultSimilarityThreshold,
		TokenOverlapThreshold: DefaultTokenOverlapThreshold,
		MinFuzzyLength:        DefaultMinFuzzyLength,
	}
}

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spaceRe = regexp.MustCompile(`\s+`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the and or but of to in on at for from by with about into over
		is are was were be been being am do does did done have has had will would can could should shall may might must
		i me my mine we us our you your he she it its they them their this that these those there here
		what which who whom whose when where why how any some much many more most very just also so than then
		s t not no`) {
		stopwords[w] = struct{}{}
	}
}

// Clean 使用默认阈值去重。
func Clean(candidates []string, question string) []string {
	return CleanWith(candidates, question, DefaultOptions())
}

// CleanWith 按原顺序过滤候选追问：与原问题或已保留的候选在规范化后相同、互相包含、
// 模糊相似度过高或内容词高度重合的都会被移除。
func CleanWith(candidates []string, question string, opts Options) []string {
	q := canon(question)
	kept := make([]string, 0, len(candidates))
	keptCanon := make([]string, 0, len(candidates))

	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		cc := canon(c)
		if cc == "" {
			continue
		}
		if q != "" && isDuplicate(cc, q, opts) {
			continue
		}
		dup := false
		for _, k := range keptCanon {
			if isDuplicate(cc, k, opts) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, strings.TrimSpace(c))
		keptCanon = append(keptCanon, cc)
	}
	return kept
}

func isDuplicate(candidate, ref string, opts Options) bool {
	if candidate == ref {
		return true
	}
	if strings.Contains(candidate, ref) || strings.Contains(ref, candidate) {
		return true
	}
	if len([]rune(candidate)) > opts.MinFuzzyLength && Ratio(candidate, ref) > opts.SimilarityThreshold {
		return true
	}
	return tokenOverlap(candidate, ref) >= opts.TokenOverlapThreshold
}

// canon 做 NFKC 规范化、转小写，并把标点替换为空格。
func canon(s string) string {
	t := strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
	t = punctRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(t, " "))
}

func contentTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if _, ok := stopwords[w]; ok {
			continue
		}
		out[singular(w)] = struct{}{}
	}
	return out
}

// singular 做最朴素的复数还原。
func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "ss"):
		return w
	case len(w) > 3 && strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	default:
		return w
	}
}

func tokenOverlap(a, b string) float64 {
	ta, tb := contentTokens(a), contentTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	small, large := ta, tb
	if len(tb) < len(ta) {
		small, large = tb, ta
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
