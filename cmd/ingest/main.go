// Package main 是离线构建索引的命令行入口。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"edi-assistant-go/internal/config"
	"edi-assistant-go/internal/pipeline"
	"edi-assistant-go/internal/vectorindex"
	"edi-assistant-go/pkg/embedding"
	"edi-assistant-go/pkg/log"
	"edi-assistant-go/pkg/storage"
	"edi-assistant-go/pkg/tika"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	dataDir      string
	chunkSize    int
	chunkOverlap int
	maxChunks    int
	batchSize    int
	publish      bool
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the paired vector index and chunk payload from the admissions documents",
	Long: `ingest reads every source document under the data directory, splits it into
overlapping chunks, embeds the chunks and writes the index file and the chunk
payload file as a pair sharing one run id.

Examples:
  # Build with the values from configs/config.yaml
  ingest

  # Rebuild a small test index and upload it to MinIO
  ingest --data-dir ./data --max-chunks 50 --publish`,
	SilenceUsage: true,
	RunE:         runIngest,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Path to the config file")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory with the source documents")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Chunk size in characters")
	rootCmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Overlap between consecutive chunks in characters")
	rootCmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "Stop after this many chunks (0 = no limit)")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Embedding batch size (1..64)")
	rootCmd.Flags().BoolVar(&publish, "publish", false, "Upload the artifacts to MinIO after a successful build")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	metric, err := vectorindex.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extractor pipeline.Extractor
	if cfg.Tika.ServerURL != "" {
		extractor = tika.NewClient(cfg.Tika)
	}

	var publisher pipeline.Publisher
	if publish {
		if !storage.Enabled(cfg.MinIO) {
			return fmt.Errorf("--publish 需要配置 minio.endpoint 与 minio.bucket_name")
		}
		if err := storage.InitMinIO(ctx, cfg.MinIO); err != nil {
			return err
		}
		publisher = func(ctx context.Context, indexPath, docsPath string) error {
			return storage.PublishArtifacts(ctx, cfg.MinIO, indexPath, docsPath)
		}
	}

	processor := pipeline.NewProcessor(embedding.NewClient(cfg.Embedding), extractor, publisher, pipeline.Options{
		DataDir:      cfg.Ingest.DataDir,
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		MaxChunks:    cfg.Ingest.MaxChunks,
		BatchSize:    cfg.Embedding.BatchSize,
		IndexPath:    cfg.Index.IndexPath,
		DocsPath:     cfg.Index.DocsPath,
		Metric:       metric,
	})

	summary, err := processor.Run(ctx)
	if err != nil {
		log.Errorf("构建索引失败: %v", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s: %d chunks from %d files (dim %d, run %s)\n",
		cfg.Index.IndexPath, cfg.Index.DocsPath, summary.Chunks, summary.Sources, summary.Dimension, summary.RunID)
	return nil
}

// applyFlags 用显式传入的命令行参数覆盖配置。
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Ingest.DataDir = dataDir
	}
	if flags.Changed("chunk-size") {
		cfg.Ingest.ChunkSize = chunkSize
	}
	if flags.Changed("chunk-overlap") {
		cfg.Ingest.ChunkOverlap = chunkOverlap
	}
	if flags.Changed("max-chunks") {
		cfg.Ingest.MaxChunks = maxChunks
	}
	if flags.Changed("batch-size") {
		cfg.Embedding.BatchSize = batchSize
	}
}
