package config

import (
	"log/slog"
	"time"
)

type contextKey string

const (
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = contextKey("traceId")
	TENANT_ID_KEY  = contextKey("tenantId")
	TenantHeader   = "X-Tenant-Id"

	RATE_LIMIT_PER_SECOND       = 5
	BURST_RATE_LIMIT_PER_SECOND = 10

	//collections
	DefaultCollection       = "workshop_docs"
	TenantSeparator         = "__"
	MinCollectionNameLength = 3
	MaxCollectionNameLength = 512
	CollectionRegistryName  = "knowledge-collections" //qdrant side collection holding provider + dimension per collection

	//chunking
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 160
	DefaultIncludeExt   = ".md,.mdx,.py,.ipynb,.txt"
	DefaultExcludeExt   = ".png,.jpg,.jpeg,.gif,.pdf"

	//query
	DefaultTopK           = 6
	DefaultScoreThreshold = 0.0

	//ingest fan-out
	DefaultIngestConcurrency = 6
	SourceFetchTimeout       = 2 * time.Minute
	DefaultEmbedFlushSize    = 64 //chunks per embedding call when the provider has no batch limit
	StatsTimeout             = 5 * time.Second
	EmbeddingBatchTimeout    = 45 * time.Second
	PDFPageExtractTimeout    = 10 * time.Second
	MaxWebContentSize        = 10 << 20 //10mb
	WebFetchTimeout          = 30 * time.Second
	WebUserAgent             = "knowledgecore/1.0 (+ingest)"

	//embeddings
	GoogleEmbeddingModel                = "gemini-embedding-001"
	EmbeddingOutputDimensionality int32 = 1536
	GoogleMaxBatch                      = 100
	GoogleMaxInputChars                 = 8000
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	OpenAIMaxBatch                      = 256
	OpenAIMaxInputChars                 = 24000
	LocalEmbeddingDimension             = 256
	EmbeddingRequestsPerSecond          = 5
	EmbeddingRetryInitialInterval       = 500 * time.Millisecond
	EmbeddingRetryMaxInterval           = 30 * time.Second
	EmbeddingRetryMaxAttempts           = 5

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobExecutionTimeout             = 30 * time.Minute

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 5 * time.Minute //synchronous ingest of a repo can take a while
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second
	MaxRequestBodySize     = 32 << 20 //32mb

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost             = "localhost"
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1 //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout = 30 * time.Second
	QdrantTieSlack         = 16
	QdrantScrollPage       = 256
	SQLitePath             = "knowledge.db"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//staging
	StageDirName  = ".wb_stage"
	CloneDirName  = "repos"
	UploadDirName = "uploads"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore    = 0
	RedisDocMapStore = 1

	//redis timeouts
	RedisJobStoreTTL    = 24 * time.Hour
	RedisDocMapStoreTTL = 7 * 24 * time.Hour
	RedisDocMapHistory  = 20
)
