package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/khonha/data/db/chunks.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/khonha/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/khonha/data/indices/vectors.bin"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/khonha/data/models/qwen3-embedding-0.6b.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Rerank.ModelPath == "" {
		cfg.Rerank.ModelPath = "/usr/local/var/khonha/data/models/ms-marco-minilm-l6-v2.onnx"
	}
	if cfg.Rerank.MaxTokens == 0 {
		cfg.Rerank.MaxTokens = 512
	}
	if cfg.Rerank.TopN == 0 {
		cfg.Rerank.TopN = 5
	}
	// Weights default as a pair so that an explicit zero for one retriever
	// survives (e.g. sparse_weight: 0 disables lexical retrieval).
	if cfg.Search.DenseWeight == 0 && cfg.Search.SparseWeight == 0 {
		cfg.Search.DenseWeight = 0.7
		cfg.Search.SparseWeight = 0.3
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 20
	}
	if cfg.Search.ExcerptChars == 0 {
		cfg.Search.ExcerptChars = 400
	}
	if cfg.Search.MaxQueryChars == 0 {
		cfg.Search.MaxQueryChars = 2000
	}
	if cfg.Search.VectorIndexType == "" {
		cfg.Search.VectorIndexType = "memory"
	}
}
