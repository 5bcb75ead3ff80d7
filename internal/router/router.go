// Package router 按固定优先级对问题进行意图分流：寒暄与越界重定向、intake 澄清、
// 政策类固定回复、以及 "是否必需" 类问题的直接回答。
package router

import (
	"strings"

	"edi-assistant-go/internal/model"
	"edi-assistant-go/pkg/log"
)

// Kind 是一次分流的结果类型。
type Kind int

const (
	// KindNone 表示没有阶段接管，交给生成阶段处理。
	KindNone Kind = iota
	// KindEarlyExit 为寒暄、越界重定向和 intake 类固定回复。
	KindEarlyExit
	// KindPolicyHardStop 为签证、offer、再次申请等政策类固定回复。
	KindPolicyHardStop
	// KindDirectRequirement 为根据上下文信号直接给出的 "是否必需" 回答。
	KindDirectRequirement
	// KindSuitability 只做标记，交由生成阶段回答。
	KindSuitability
)

func (k Kind) String() string {
	switch k {
	case KindEarlyExit:
		return "early_exit"
	case KindPolicyHardStop:
		return "policy"
	case KindDirectRequirement:
		return "requirement"
	case KindSuitability:
		return "suitability"
	default:
		return "none"
	}
}

// Outcome 是分流结果。Text 仅在 Answered() 为 true 时有意义。
type Outcome struct {
	Kind  Kind
	Text  string
	Stage string
}

// Answered 表示该结果已经给出了最终回复。
func (o Outcome) Answered() bool {
	switch o.Kind {
	case KindEarlyExit, KindPolicyHardStop, KindDirectRequirement:
		return true
	default:
		return false
	}
}

type stage struct {
	name  string
	route func(q string, passages []model.Passage) Outcome
}

// 阶段顺序决定了重叠触发词之间的优先级，不能调整。
var (
	earlyStages = []stage{
		{"early", routeEarly},
	}
	contextStages = []stage{
		{"intake", routeIntake},
		{"policy", routePolicy},
		{"requirement", routeRequirementOrSuitability},
	}
)

// Early 只评估不需要检索的第一阶段。
func Early(q string) Outcome {
	return evaluate(earlyStages, q, nil)
}

// WithContext 在检索完成后评估其余阶段。
func WithContext(q string, passages []model.Passage) Outcome {
	return evaluate(contextStages, q, passages)
}

// Route 按顺序评估全部阶段。
func Route(q string, passages []model.Passage) Outcome {
	if o := Early(q); o.Kind != KindNone {
		return o
	}
	return WithContext(q, passages)
}

func evaluate(stages []stage, q string, passages []model.Passage) Outcome {
	q = strings.TrimSpace(q)
	for _, s := range stages {
		o := s.route(q, passages)
		if o.Kind == KindNone {
			continue
		}
		o.Stage = s.name
		log.Debugf("[Router] 命中阶段 %s, 结果: %s", s.name, o.Kind)
		return o
	}
	return Outcome{Kind: KindNone}
}

func answered(kind Kind, text string) Outcome {
	return Outcome{Kind: kind, Text: text}
}

func routeEarly(q string, _ []model.Passage) Outcome {
	switch {
	case greetingPattern.MatchString(q):
		return answered(KindEarlyExit, GreetingText)
	case thanksPattern.MatchString(q):
		return answered(KindEarlyExit, ThanksText)
	case praisePattern.MatchString(q):
		return answered(KindEarlyExit, PraiseText)
	case mdesPattern.MatchString(q):
		return answered(KindEarlyExit, MDesRedirect)
	}
	return Outcome{}
}

func routeIntake(q string, _ []model.Passage) Outcome {
	// suitability 问题优先
	if suitabilityPattern.MatchString(q) {
		return Outcome{}
	}
	start := programmeStartPattern.MatchString(q)
	period := applicationPeriodPattern.MatchString(q)
	if !intakePattern.MatchString(q) && !start && !period {
		return Outcome{}
	}
	// 具体日期交给生成阶段根据文档回答
	if exactDatePattern.MatchString(q) {
		return Outcome{}
	}
	if start {
		return answered(KindEarlyExit, ProgrammeStartFallback)
	}
	if period {
		return Outcome{}
	}
	return answered(KindEarlyExit, IntakeClarification)
}

func routePolicy(q string, passages []model.Passage) Outcome {
	switch {
	case offerOutcomePattern.MatchString(q):
		return answered(KindPolicyHardStop, OfferOutcomeFallback)
	case reapplicationPattern.MatchString(q):
		return answered(KindPolicyHardStop, ReapplicationFallback)
	case visaProcessPattern.MatchString(q):
		return answered(KindPolicyHardStop, VisaProcessFallback)
	case visaPattern.MatchString(q):
		return answered(KindPolicyHardStop, VisaFallback)
	case arrivalPattern.MatchString(q):
		if len(passages) == 0 {
			return answered(KindPolicyHardStop, NotFoundFallback)
		}
	}
	return Outcome{}
}

func routeRequirementOrSuitability(q string, passages []model.Passage) Outcome {
	if isRequirementShaped(q) {
		// 以 suitability 方式提问的 requirement 问题只做标记
		if IsSuitabilityQuestion(q) {
			return Outcome{Kind: KindSuitability}
		}
		return answered(KindDirectRequirement, AnswerRequirement(q, passages))
	}
	if isSuitabilityShaped(q) {
		return Outcome{Kind: KindSuitability}
	}
	return Outcome{}
}

// PickFallback 仅根据问题文本选择兜底回复，与检索结果无关。
func PickFallback(q string) string {
	switch {
	case isRequirementShaped(q):
		return RequirementFallbackGeneric
	case isSuitabilityShaped(q):
		return SuitabilityFallback
	default:
		return NotFoundFallback
	}
}
