package vectorindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/pkg/log"

	"github.com/google/uuid"
)

const (
	indexMagic   = "EDIX"
	indexVersion = uint16(1)
)

// Store 是一次加载得到的索引与载荷，加载完成后只读，可被并发请求共享。
type Store struct {
	Index  *FlatIndex
	Chunks []model.Chunk
	RunID  string
}

// indexHeader 是索引文件的定长头部，其后紧跟 count*dim 个小端 float32。
type indexHeader struct {
	Magic   [4]byte
	Version uint16
	Metric  uint8
	_       uint8
	Dim     uint32
	Count   uint32
	RunID   [16]byte
}

// payloadFile 是 docs.json 的结构。
type payloadFile struct {
	RunID     string        `json:"run_id"`
	Metric    Metric        `json:"metric"`
	Dimension int           `json:"dimension"`
	Chunks    []model.Chunk `json:"chunks"`
}

// SavePair 将索引与载荷写入成对的两个文件，二者携带同一个 run id。
// 每个文件都先写入临时文件再重命名，避免读到写了一半的产物。
func SavePair(indexPath, docsPath string, idx *FlatIndex, chunks []model.Chunk) (string, error) {
	if idx.Len() != len(chunks) {
		return "", fmt.Errorf("%w: 索引行数 %d 与分块数 %d 不一致", apperrors.ErrIndexCorrupt, idx.Len(), len(chunks))
	}
	runID := uuid.New()

	if err := writeAtomic(indexPath, func(w io.Writer) error {
		return writeIndex(w, idx, runID)
	}); err != nil {
		return "", fmt.Errorf("写入索引文件失败: %w", err)
	}
	if err := writeAtomic(docsPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(payloadFile{
			RunID:     runID.String(),
			Metric:    idx.metric,
			Dimension: idx.dim,
			Chunks:    chunks,
		})
	}); err != nil {
		return "", fmt.Errorf("写入载荷文件失败: %w", err)
	}
	return runID.String(), nil
}

// LoadPair 读取并校验成对的产物。
// 文件缺失返回 ErrConfiguration；两者不匹配或内容损坏返回 ErrIndexCorrupt。
func LoadPair(indexPath, docsPath string) (*Store, error) {
	log.Infof("[VectorIndex] 步骤1: 读取索引文件 %s", indexPath)
	idx, runID, err := readIndexFile(indexPath)
	if err != nil {
		return nil, err
	}

	log.Infof("[VectorIndex] 步骤2: 读取载荷文件 %s", docsPath)
	payload, err := readPayloadFile(docsPath)
	if err != nil {
		return nil, err
	}

	log.Info("[VectorIndex] 步骤3: 校验索引与载荷是否配对")
	if payload.RunID != runID.String() {
		return nil, fmt.Errorf("%w: run id 不一致 (index=%s, docs=%s)", apperrors.ErrIndexCorrupt, runID, payload.RunID)
	}
	if len(payload.Chunks) != idx.Len() {
		return nil, fmt.Errorf("%w: 索引行数 %d 与分块数 %d 不一致", apperrors.ErrIndexCorrupt, idx.Len(), len(payload.Chunks))
	}
	if payload.Dimension != idx.dim || payload.Metric != idx.metric {
		return nil, fmt.Errorf("%w: 载荷记录的维度/度量 (%d/%s) 与索引 (%d/%s) 不一致",
			apperrors.ErrIndexCorrupt, payload.Dimension, payload.Metric, idx.dim, idx.metric)
	}
	for i, c := range payload.Chunks {
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("%w: 第 %d 个分块文本为空", apperrors.ErrIndexCorrupt, i)
		}
	}

	log.Infof("[VectorIndex] 加载完成, run_id: %s, 行数: %d, 维度: %d", runID, idx.Len(), idx.dim)
	return &Store{Index: idx, Chunks: payload.Chunks, RunID: runID.String()}, nil
}

func writeIndex(w io.Writer, idx *FlatIndex, runID uuid.UUID) error {
	metric := uint8(0)
	if idx.metric == MetricL2 {
		metric = 1
	}
	header := indexHeader{Version: indexVersion, Metric: metric, Dim: uint32(idx.dim), Count: uint32(idx.Len()), RunID: runID}
	copy(header.Magic[:], indexMagic)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, idx.data)
}

func readIndexFile(path string) (*FlatIndex, uuid.UUID, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, uuid.Nil, fmt.Errorf("%w: 索引文件不存在: %s", apperrors.ErrConfiguration, path)
		}
		return nil, uuid.Nil, fmt.Errorf("%w: 打开索引文件失败: %w", apperrors.ErrConfiguration, err)
	}
	defer f.Close()
	return readIndex(bufio.NewReader(f))
}

func readIndex(r io.Reader) (*FlatIndex, uuid.UUID, error) {
	var header indexHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: 索引文件头不完整: %w", apperrors.ErrIndexCorrupt, err)
	}
	if string(header.Magic[:]) != indexMagic {
		return nil, uuid.Nil, fmt.Errorf("%w: 索引文件格式不正确", apperrors.ErrIndexCorrupt)
	}
	if header.Version != indexVersion {
		return nil, uuid.Nil, fmt.Errorf("%w: 不支持的索引版本 %d", apperrors.ErrIndexCorrupt, header.Version)
	}
	if header.Dim == 0 || header.Count == 0 {
		return nil, uuid.Nil, fmt.Errorf("%w: 索引为空 (dim=%d, count=%d)", apperrors.ErrIndexCorrupt, header.Dim, header.Count)
	}
	metric := MetricIP
	switch header.Metric {
	case 0:
	case 1:
		metric = MetricL2
	default:
		return nil, uuid.Nil, fmt.Errorf("%w: 未知的度量编码 %d", apperrors.ErrIndexCorrupt, header.Metric)
	}

	total := uint64(header.Dim) * uint64(header.Count)
	if total > math.MaxInt32 {
		return nil, uuid.Nil, fmt.Errorf("%w: 索引尺寸异常", apperrors.ErrIndexCorrupt)
	}
	data := make([]float32, total)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: 索引数据被截断: %w", apperrors.ErrIndexCorrupt, err)
	}
	return &FlatIndex{metric: metric, dim: int(header.Dim), data: data}, uuid.UUID(header.RunID), nil
}

func readPayloadFile(path string) (*payloadFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: 载荷文件不存在: %s", apperrors.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("%w: 读取载荷文件失败: %w", apperrors.ErrConfiguration, err)
	}
	var payload payloadFile
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: 载荷文件解析失败: %w", apperrors.ErrIndexCorrupt, err)
	}
	return &payload, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
