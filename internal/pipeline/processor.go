// Package pipeline 定义了离线构建索引的核心流程：读取资料、分块、向量化、写出成对产物。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/chunker"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/internal/vectorindex"
	"edi-assistant-go/pkg/embedding"
	"edi-assistant-go/pkg/log"
)

// 直接按 UTF-8 读取的文件类型。
var plainTextExts = map[string]bool{".txt": true, ".md": true}

// 需要经 Tika 提取文本的文件类型。
var extractExts = map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".html": true, ".htm": true}

// Extractor 从二进制文档中提取纯文本，由 Tika 客户端实现。
type Extractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Publisher 在产物写出后将其发布到共享存储。
type Publisher func(ctx context.Context, indexPath, docsPath string) error

// Options 为一次构建的参数。
type Options struct {
	DataDir      string
	ChunkSize    int
	ChunkOverlap int
	MaxChunks    int // 0 表示不限制
	BatchSize    int
	IndexPath    string
	DocsPath     string
	Metric       vectorindex.Metric
}

// Summary 描述一次成功的构建。
type Summary struct {
	Sources   int
	Skipped   int
	Chunks    int
	Dimension int
	RunID     string
	Published bool
}

// Processor 封装了构建流程的所有依赖和逻辑。
type Processor struct {
	embedder  embedding.Client
	extractor Extractor
	publisher Publisher
	opts      Options
}

// NewProcessor 创建一个新的 Processor 实例。extractor 与 publisher 可以为 nil。
func NewProcessor(embedder embedding.Client, extractor Extractor, publisher Publisher, opts Options) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = embedding.MaxBatchSize
	}
	return &Processor{
		embedder:  embedder,
		extractor: extractor,
		publisher: publisher,
		opts:      opts,
	}
}

type source struct {
	name string
	text string
}

// Run 执行一次完整的构建。任意一批向量化失败都会使整次构建失败，且不会写出任何产物。
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	log.Infof("[Processor] 开始构建索引, data_dir: %s, chunk: %d, overlap: %d, max_chunks: %d, batch: %d",
		p.opts.DataDir, p.opts.ChunkSize, p.opts.ChunkOverlap, p.opts.MaxChunks, p.opts.BatchSize)

	// 1. 读取资料
	log.Info("[Processor] 步骤1: 读取资料文件")
	sources, skipped, err := p.readSources(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("[Processor] 步骤1: 共读取 %d 个文件, 跳过 %d 个", len(sources), skipped)

	// 2. 文本切块
	log.Info("[Processor] 步骤2: 进行文本分块")
	chunks, err := p.chunk(sources)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 构建中止")
		return nil, fmt.Errorf("%w: 资料中没有可用的文本", apperrors.ErrConfiguration)
	}
	log.Infof("[Processor] 步骤2: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 3. 向量化
	log.Info("[Processor] 步骤3: 开始分批向量化")
	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// 4. 构建索引
	log.Info("[Processor] 步骤4: 构建向量索引")
	idx, err := vectorindex.Build(p.opts.Metric, vectors)
	if err != nil {
		return nil, err
	}

	// 5. 写出成对产物
	log.Infof("[Processor] 步骤5: 写出产物 %s, %s", p.opts.IndexPath, p.opts.DocsPath)
	runID, err := vectorindex.SavePair(p.opts.IndexPath, p.opts.DocsPath, idx, chunks)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Sources:   len(sources),
		Skipped:   skipped,
		Chunks:    len(chunks),
		Dimension: idx.Dim(),
		RunID:     runID,
	}

	// 6. 发布到对象存储
	if p.publisher != nil {
		log.Info("[Processor] 步骤6: 发布产物到对象存储")
		if err := p.publisher(ctx, p.opts.IndexPath, p.opts.DocsPath); err != nil {
			return summary, fmt.Errorf("发布产物失败: %w", err)
		}
		summary.Published = true
	}

	log.Infof("[Processor] 构建完成, run_id: %s, 分块: %d, 维度: %d", runID, summary.Chunks, summary.Dimension)
	return summary, nil
}

// readSources 递归读取 data_dir 下的资料，按路径字典序返回。
func (p *Processor) readSources(ctx context.Context) ([]source, int, error) {
	info, err := os.Stat(p.opts.DataDir)
	if err != nil || !info.IsDir() {
		return nil, 0, fmt.Errorf("%w: 资料目录不存在: %s", apperrors.ErrConfiguration, p.opts.DataDir)
	}

	var (
		sources []source
		skipped int
	)
	err = filepath.WalkDir(p.opts.DataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !plainTextExts[ext] && !extractExts[ext] {
			return nil
		}
		name, _ := filepath.Rel(p.opts.DataDir, path)
		name = filepath.ToSlash(name)

		text, err := p.readOne(ctx, path, ext)
		if err != nil {
			if errors.Is(err, errNoExtractor) {
				log.Warnf("[Processor] 未配置 Tika, 跳过文件: %s", name)
				skipped++
				return nil
			}
			return fmt.Errorf("读取 %s 失败: %w", name, err)
		}
		log.Infof("[Processor] 文件 %s: %d 字符", name, utf8.RuneCountInString(text))
		sources = append(sources, source{name: name, text: text})
		return nil
	})
	if err != nil {
		return nil, skipped, err
	}
	if len(sources) == 0 {
		return nil, skipped, fmt.Errorf("%w: 资料目录中没有可用的文件: %s", apperrors.ErrConfiguration, p.opts.DataDir)
	}
	return sources, skipped, nil
}

var errNoExtractor = errors.New("no extractor configured")

func (p *Processor) readOne(ctx context.Context, path, ext string) (string, error) {
	if plainTextExts[ext] {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		// 非法 UTF-8 字节直接丢弃
		return strings.ToValidUTF8(string(b), ""), nil
	}
	if p.extractor == nil {
		return "", errNoExtractor
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return p.extractor.ExtractText(ctx, f, filepath.Base(path))
}

// chunk 按文件顺序分块，达到 max_chunks 后停止。
func (p *Processor) chunk(sources []source) ([]model.Chunk, error) {
	var all []model.Chunk
	for _, s := range sources {
		chunks, err := chunker.Document(s.name, s.text, p.opts.ChunkSize, p.opts.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
		if p.opts.MaxChunks > 0 && len(all) >= p.opts.MaxChunks {
			log.Infof("[Processor] 达到 max_chunks=%d, 停止分块", p.opts.MaxChunks)
			return all[:p.opts.MaxChunks], nil
		}
	}
	return all, nil
}

// embed 分批向量化带来源标记的分块文本。
func (p *Processor) embed(ctx context.Context, chunks []model.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := min(len(chunks), start+p.opts.BatchSize)
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Label())
		}
		batch, err := p.embedder.CreateEmbeddings(ctx, texts)
		if err != nil {
			log.Errorf("[Processor] 第 %d-%d 个分块向量化失败: %v", start+1, end, err)
			return nil, err
		}
		vectors = append(vectors, batch...)
		log.Infof("[Processor] 已向量化 %d/%d 个分块", end, len(chunks))
	}
	return vectors, nil
}
