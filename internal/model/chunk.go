package model

import "fmt"

// Chunk 是分块结果在载荷文件中的记录，行号与向量索引中的行一一对应。
type Chunk struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Sequence int    `json:"seq"`
}

// Label 返回带来源标记的文本，用于拼接提示词中的上下文。
func (c Chunk) Label() string {
	return fmt.Sprintf("[%s | chunk %d]\n%s", c.Source, c.Sequence, c.Text)
}

// Passage 是一次检索返回的单条结果。
type Passage struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
	Sequence int     `json:"seq"`
}

// Label 与 Chunk.Label 保持相同的格式。
func (p Passage) Label() string {
	return Chunk{Text: p.Text, Source: p.Source, Sequence: p.Sequence}.Label()
}
