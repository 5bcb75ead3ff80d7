// Package generator 基于检索到的上下文调用大模型生成受约束的回答。
package generator

import (
	"context"
	"fmt"
	"strings"

	"edi-assistant-go/internal/model"
	"edi-assistant-go/pkg/llm"
	"edi-assistant-go/pkg/log"
)

// NotInDocuments 是上下文无法回答问题时模型被要求输出的固定句子。
const NotInDocuments = "The answer is not in the provided documents."

const (
	defaultTemperature     = 0.3
	defaultMaxTokens       = 800
	defaultMaxContextChars = 12000
)

// DefaultSystemPrompt 是固定的角色与策略说明。
const DefaultSystemPrompt = `You are an admissions assistant for the MSc in Engineering Design & Innovation (MSc EDI or EDI).

TOP PRIORITY NON-NEGOTIABLE RULES:
1) Base your answers ONLY on the provided context.
   You may summarise, reorganise, and synthesise information across multiple context sections.
   Do NOT introduce facts that are not supported by the context.
2) If a question cannot be answered at all using the provided context,
   reply exactly: "` + NotInDocuments + `"
3) EDI ALWAYS means Engineering Design & Innovation (never Equity, Diversity, and Inclusion).
4) Only answer questions about MSc EDI. Do NOT provide details about the Master of Design in Integrated Design (MDes).

PROGRAMME OVERVIEW ANSWERING MODE:
- When the user asks for an overview or indicates general interest in the programme, provide a structured overview organised into clear sections.
- Explicitly state when information is not specified in the official information provided.

QUALITATIVE / EXPERIENCE QUESTIONS:
- For subjective questions (workload, intensity, pace), you MAY explain what the context implies.
- Clearly label such answers as an inference from the context, avoid absolute claims, and never invent numbers.
- If the context contains no related indicators at all, use the fallback sentence.

SUITABILITY AND BACKGROUND QUESTIONS:
- You MAY reason by synthesising admissions criteria, cohort composition, and programme description.
- State clearly when a requirement is "not explicitly specified" and avoid definitive claims.
- Do NOT use the fallback sentence unless the context provides zero relevant information.
- Frame the answer in terms of fit and learning orientation, not prerequisites, and distinguish what is helpful from what is required.
- If the user states their background, address it explicitly in the first paragraph.

FORMAT AND PRESENTATION RULES (STRICT):
- Use Markdown formatting with clear section headings (###), each heading alone on its line followed by a blank line.
- Lists MUST be proper bullet lists with each bullet on a new line, with a blank line before and after the list.
- Numbered steps MUST be a Markdown list, never inline in a paragraph.
- A sentence that introduces a list MUST end with a line break.
- Do NOT compress multiple ideas into a single paragraph.
`

// Options 控制生成参数。零值使用默认值；Temperature 为 nil 时使用 0.3，显式的 0 保留。
type Options struct {
	SystemPrompt    string
	NoResultText    string
	Temperature     *float64
	MaxTokens       int
	MaxContextChars int
}

// Generator 拼接提示词并调用注入的 llm.Client。
type Generator struct {
	client          llm.Client
	systemPrompt    string
	noResult        string
	gen             *llm.GenerationParams
	maxContextChars int
}

// New 创建 Generator。
func New(client llm.Client, opts Options) *Generator {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.NoResultText == "" {
		opts.NoResultText = NotInDocuments
	}
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = defaultMaxContextChars
	}
	maxTokens := opts.MaxTokens
	return &Generator{
		client:          client,
		systemPrompt:    opts.SystemPrompt,
		noResult:        opts.NoResultText,
		gen:             &llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens},
		maxContextChars: opts.MaxContextChars,
	}
}

// Answer 生成回答。没有可用上下文时直接返回 NoResult 句子，不调用模型；
// 模型调用失败时返回 ErrServiceUnavailable。
func (g *Generator) Answer(ctx context.Context, question string, passages []model.Passage) (string, error) {
	contextText, used := g.buildContext(passages)
	if contextText == "" {
		log.Info("[Generator] 上下文为空, 跳过模型调用")
		return g.noResult, nil
	}
	log.Infof("[Generator] 步骤1: 上下文拼接完成, 使用 %d/%d 个分块, 长度 %d", used, len(passages), len([]rune(contextText)))

	raw, err := g.client.Complete(ctx, g.systemPrompt, g.userPrompt(contextText, question), g.gen)
	if err != nil {
		return "", err
	}
	log.Infof("[Generator] 步骤2: 模型返回, 长度 %d", len(raw))
	return FormatAnswer(raw), nil
}

// IsNoResult 判断回答是否为 "文档中没有答案" 的固定句子。
func (g *Generator) IsNoResult(answer string) bool {
	a := strings.TrimSpace(answer)
	return a == "" || strings.EqualFold(strings.Trim(a, `"`), g.noResult)
}

// buildContext 按顺序拼接非空分块，总长度不超过 maxContextChars。
func (g *Generator) buildContext(passages []model.Passage) (string, int) {
	var b strings.Builder
	used, total := 0, 0
	for _, p := range passages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		part := p.Label()
		n := len([]rune(part))
		if used > 0 && total+n > g.maxContextChars {
			break
		}
		if n > g.maxContextChars {
			part = string([]rune(part)[:g.maxContextChars])
			n = g.maxContextChars
		}
		if used > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(part)
		total += n
		used++
	}
	return b.String(), used
}

func (g *Generator) userPrompt(contextText, question string) string {
	return fmt.Sprintf(`You must answer in well-formatted Markdown.

Rules:
- Use ONLY the information in the Context.
- If the Context does not contain the answer, say: "%s"
- Do not guess and do not add facts not supported by the Context.

Context:
%s

Question:
%s
`, g.noResult, contextText, question)
}
