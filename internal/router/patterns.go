package router

import "regexp"

// 问题分类使用的模式。全部大小写不敏感，撇号同时兼容 ' 与 ’。
var (
	greetingPattern = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|hiya|greetings|good\s+(morning|afternoon|evening)|how\s+are\s+you(\s+doing)?)(\s+there)?[\s!.,?]*$`)
	thanksPattern   = regexp.MustCompile(`(?i)^\s*(thanks|thank\s+you|thx|ty|many\s+thanks|cheers)(\s+(so\s+much|a\s+lot|very\s+much))?[\s!.,]*$`)
	praisePattern   = regexp.MustCompile(`(?i)^\s*(great|awesome|nice|cool|perfect|amazing|very\s+helpful|that\s+helps|that\s+was\s+helpful|this\s+is\s+helpful|good\s+job|well\s+done)[\s!.,]*$`)
	mdesPattern     = regexp.MustCompile(`(?i)\b(mdes|m\.des|master\s+of\s+design|integrated\s+design)\b`)

	suitabilityPattern = regexp.MustCompile(`(?i)(am\s+i\s+suitable|will\s+i\s+be\s+suitable|would\s+i\s+be\s+suitable|is\s+edi\s+suitable|suitable\s+for\s+me|fit\s+for\s+edi|good\s+fit|good\s+candidate|do\s+i\s+stand\s+a\s+chance|chances?\s+of\s+admission|should\s+i\s+apply)`)
	profilePattern     = regexp.MustCompile(`(?i)(\b(i\s+am|i'm|i’m|as)\s+(an?\s+)?(engineer|designer|architect|developer|programmer|scientist|fresh\s+grad(uate)?|working\s+professional)\b|\bmy\s+background\b|\b(non-?design|engineering|design|technical)\s+background\b|\bno\s+(design\s+)?experience\b)`)

	intakePattern            = regexp.MustCompile(`(?i)\bintakes?\b`)
	programmeStartPattern    = regexp.MustCompile(`(?i)(\bwhen\s+(does|do|will)\s+(the\s+)?(programme|program|classes|class|course|semester|msc\s+edi|edi)\s+(start|begin|commence)\b|\bstart\s+date\b|\bcommencement\b|\bprogram(me)?\s+start\b)`)
	applicationPeriodPattern = regexp.MustCompile(`(?i)(\bapplication\s+(period|window|deadline|opening|closing|dates?)\b|\bwhen\s+(can|do|should)\s+i\s+apply\b|\bapplications?\s+(open|close)\b|\bdeadline\b)`)
	exactDatePattern         = regexp.MustCompile(`(?i)(\b(exact|specific|precise)\s+(date|day)s?\b|\b(what|which)\s+date\b)`)

	offerOutcomePattern  = regexp.MustCompile(`(?i)(\b(do\s+not|don't|don’t|didn't|didn’t|fail\s+to|not)\s+accept(ing)?\s+(the\s+|my\s+|an?\s+)?offer\b|\boffer\s+(lapse|lapses|expire|expires|expired)\b|\bdecline\s+(the\s+|my\s+|an?\s+)?offer\b)`)
	reapplicationPattern = regexp.MustCompile(`(?i)\b(re-?apply|apply\s+again|re-?application|applying\s+again|next\s+(application\s+)?cycle)\b`)
	visaProcessPattern   = regexp.MustCompile(`(?i)(\b(visa|student['’]?s?\s+pass)\b.*\b(process|apply|application|steps?|procedure)\b|\b(how|steps?|process|procedure)\b.*\b(visa|student['’]?s?\s+pass)\b)`)
	visaPattern          = regexp.MustCompile(`(?i)\b(visa|student['’]?s?\s+pass|immigration|ica)\b`)
	arrivalPattern       = regexp.MustCompile(`(?i)\b(arrival|arrive|arriving|pre-?arrival|accommodation|housing|hostel|airport|orientation)\b`)

	requirementPattern = regexp.MustCompile(`(?i)\b(required|requirement|mandatory|compulsory|prerequisites?|necessary|do\s+i\s+need|does\s+one\s+need|do\s+applicants\s+need|must\s+i\s+(have|submit|take|provide)|need\s+to\s+(have|submit|take|provide))\b`)
	whPrefixPattern    = regexp.MustCompile(`(?i)^\s*(what|which|when|where|who|whom|whose|why|how)\b`)
	logisticsPattern   = regexp.MustCompile(`(?i)\b(fees?|tuition|cost|deadlines?|dates?|schedule|timetable|duration|accommodation|housing|visa|student['’]?s?\s+pass|scholarships?)\b`)
)

// IsSuitabilityQuestion 判断问题是否询问个人是否适合本项目。
func IsSuitabilityQuestion(q string) bool {
	return suitabilityPattern.MatchString(q)
}

func isSuitabilityShaped(q string) bool {
	return suitabilityPattern.MatchString(q) || profilePattern.MatchString(q)
}

// isRequirementShaped 形如 "is X required"，且不是 wh 问句或费用/日期等事务性问题。
func isRequirementShaped(q string) bool {
	return requirementPattern.MatchString(q) &&
		!whPrefixPattern.MatchString(q) &&
		!logisticsPattern.MatchString(q)
}
