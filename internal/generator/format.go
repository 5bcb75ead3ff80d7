package generator

import (
	"regexp"
	"strings"
)

var (
	colonNumbered  = regexp.MustCompile(`:\s*(\d+\.)\s+\*\*`)
	inlineNumbered = regexp.MustCompile(`([^\n])\s+(\d+\.)\s+\*\*`)
	bulletAfter    = regexp.MustCompile(`([^\n])\s*(•\s+)`)
	bulletSpace    = regexp.MustCompile(`\s+(•\s+)`)
	bulletBlock    = regexp.MustCompile(`\n(•\s+)`)
	extraNewlines  = regexp.MustCompile(`\n{3,}`)
	crlf           = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// NormalizeInlineNumberedLists 将 "Steps: 1. **A** 2. **B**" 这类行内编号列表拆成独立的行。
func NormalizeInlineNumberedLists(text string) string {
	if text == "" {
		return text
	}
	text = crlf.Replace(text)
	text = colonNumbered.ReplaceAllString(text, ":\n\n${1} **")
	text = inlineNumbered.ReplaceAllString(text, "${1}\n\n${2} **")
	return extraNewlines.ReplaceAllString(text, "\n\n")
}

// NormalizeBullets 保证每个 • 项目独占一行，并在列表块前留一个空行。
func NormalizeBullets(text string) string {
	if text == "" {
		return text
	}
	t := crlf.Replace(text)
	t = bulletAfter.ReplaceAllString(t, "${1}\n${2}")
	t = bulletSpace.ReplaceAllString(t, "\n${1}")
	t = bulletBlock.ReplaceAllString(t, "\n\n${1}")
	t = extraNewlines.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// FormatAnswer 是所有回复返回前统一的格式化入口。
func FormatAnswer(text string) string {
	return NormalizeBullets(NormalizeInlineNumberedLists(text))
}
