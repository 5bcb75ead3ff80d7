// Package chunker 将原始文本切分为带重叠的固定长度窗口。
// 长度以 rune 计算，避免截断多字节字符。
package chunker

import (
	"fmt"
	"iter"
	"strings"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/model"
)

// Split 返回一个惰性的分块序列。序列可以重复遍历，每次得到相同的结果。
// overlap >= size 或 size <= 0 时返回 ErrConfiguration。
func Split(text string, size, overlap int) (iter.Seq[string], error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n")))
	n := len(runes)

	return func(yield func(string) bool) {
		start := 0
		for start < n {
			end := min(n, start+size)
			if c := strings.TrimSpace(string(runes[start:end])); c != "" {
				if !yield(c) {
					return
				}
			}
			// 到达末尾即停止，避免尾部窗口被重复输出
			if end >= n {
				return
			}
			start = end - overlap
		}
	}, nil
}

// Document 对单个文档分块，并附上来源与从 1 开始的序号。
func Document(source, text string, size, overlap int) ([]model.Chunk, error) {
	seq, err := Split(text, size, overlap)
	if err != nil {
		return nil, err
	}
	var chunks []model.Chunk
	for c := range seq {
		chunks = append(chunks, model.Chunk{
			Text:     c,
			Source:   source,
			Sequence: len(chunks) + 1,
		})
	}
	return chunks, nil
}

// Count 返回长度为 n 的文本会产生的窗口数量（含可能被丢弃的空白窗口）。
func Count(n, size, overlap int) int {
	if n <= 0 || size <= 0 || overlap >= size {
		return 0
	}
	if n <= size {
		return 1
	}
	stride := size - overlap
	return 1 + (n-size+stride-1)/stride
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size 必须大于 0, 当前为 %d", apperrors.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: chunk overlap (%d) 必须小于 chunk size (%d)", apperrors.ErrConfiguration, overlap, size)
	}
	return nil
}
