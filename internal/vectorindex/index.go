// Package vectorindex 实现穷举检索的平面向量索引，以及与分块载荷成对持久化的存储。
package vectorindex

import (
	"fmt"
	"sort"

	"edi-assistant-go/internal/apperrors"
)

// Metric 是索引使用的相似度度量。
type Metric string

const (
	// MetricIP 为内积，向量已归一化时等价于余弦相似度，分数越大越相似。
	MetricIP Metric = "ip"
	// MetricL2 为欧氏距离的平方，分数越小越相似。
	MetricL2 Metric = "l2"
)

// ParseMetric 解析配置中的度量名称。
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricIP, MetricL2:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: 未知的度量 '%s'", apperrors.ErrConfiguration, s)
	}
}

// Hit 是一次检索命中的行号与原始分数。
type Hit struct {
	Row   int
	Score float32
}

// FlatIndex 按插入顺序保存向量，行号即载荷中的位置。创建后只读。
type FlatIndex struct {
	metric Metric
	dim    int
	data   []float32 // 行优先存储, len = count * dim
}

// Build 以给定顺序构建索引，所有向量必须具有相同的非零维度。
func Build(metric Metric, vectors [][]float32) (*FlatIndex, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: 无法用空向量集构建索引", apperrors.ErrConfiguration)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: 向量维度为 0", apperrors.ErrConfiguration)
	}
	data := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: 第 %d 个向量维度为 %d, 期望 %d", apperrors.ErrConfiguration, i, len(v), dim)
		}
		data = append(data, v...)
	}
	return &FlatIndex{metric: metric, dim: dim, data: data}, nil
}

func (x *FlatIndex) Metric() Metric { return x.metric }
func (x *FlatIndex) Dim() int       { return x.dim }
func (x *FlatIndex) Len() int       { return len(x.data) / x.dim }

// Row 返回第 i 行向量的只读视图。
func (x *FlatIndex) Row(i int) []float32 {
	return x.data[i*x.dim : (i+1)*x.dim]
}

// Search 穷举计算查询向量与每一行的分数，按最优优先返回至多 k 个结果，分数相同时行号小的在前。
// 查询维度与索引不一致时返回 nil。
func (x *FlatIndex) Search(query []float32, k int) []Hit {
	if len(query) != x.dim || k <= 0 {
		return nil
	}
	n := x.Len()
	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{Row: i, Score: x.score(query, x.Row(i))}
	}
	if x.metric == MetricL2 {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
	} else {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}
	return hits[:min(k, n)]
}

// Similarity 将命中分数映射为余弦意义上的相似度（越大越相似）。
// l2 度量下假设向量已归一化: cos = 1 - d²/2。
func (x *FlatIndex) Similarity(h Hit) float64 {
	if x.metric == MetricL2 {
		return 1 - float64(h.Score)/2
	}
	return float64(h.Score)
}

func (x *FlatIndex) score(a, b []float32) float32 {
	var s float32
	if x.metric == MetricL2 {
		for i := range a {
			d := a[i] - b[i]
			s += d * d
		}
		return s
	}
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
