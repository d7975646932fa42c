package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration. Defaults come from the constants in
// this package, then an optional YAML file, then the environment.
type Settings struct {
	IsProd     bool   `yaml:"is_prod"`
	ListenAddr string `yaml:"listen_addr"`
	AuthToken  string `yaml:"auth_token"`
	NoAuth     bool   `yaml:"no_auth_bypass"`

	Embeddings EmbeddingSettings `yaml:"embeddings"`
	Vector     VectorSettings    `yaml:"vector"`
	Redis      RedisSettings     `yaml:"redis"`
	Ingest     IngestSettings    `yaml:"ingest"`
}

type EmbeddingSettings struct {
	Provider      string `yaml:"provider"` // google | openai | local
	Model         string `yaml:"model"`
	Dimension     int    `yaml:"dimension"`
	GoogleAPIKey  string `yaml:"google_api_key"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

type VectorSettings struct {
	Backend      string `yaml:"backend"` // qdrant | sqlite | memory
	QdrantHost   string `yaml:"qdrant_host"`
	QdrantPort   int    `yaml:"qdrant_port"`
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	QdrantUseTLS bool   `yaml:"qdrant_use_tls"`
	SQLitePath   string `yaml:"sqlite_path"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type IngestSettings struct {
	DefaultCollection string `yaml:"default_collection"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	IncludeExt        string `yaml:"include_ext"`
	ExcludeExt        string `yaml:"exclude_ext"`
	Concurrency       int    `yaml:"concurrency"`
	BindMap           string `yaml:"bind_map"`
	StageRoot         string `yaml:"stage_root"`
	WorkDir           string `yaml:"work_dir"`
	ReadViaContainer  bool   `yaml:"read_via_container"`
	AllowPrivateFetch bool   `yaml:"allow_private_fetch"`
}

var (
	current   = Defaults()
	currentMu sync.RWMutex
)

func Defaults() Settings {
	return Settings{
		ListenAddr: ServerListenAddr,
		Embeddings: EmbeddingSettings{
			Provider:  "google",
			Model:     GoogleEmbeddingModel,
			Dimension: int(EmbeddingOutputDimensionality),
		},
		Vector: VectorSettings{
			Backend:    "qdrant",
			QdrantHost: QdrantHost,
			QdrantPort: QdrantGrpcPort,
			SQLitePath: SQLitePath,
		},
		Redis: RedisSettings{Addr: RedisAddr},
		Ingest: IngestSettings{
			DefaultCollection: DefaultCollection,
			ChunkSize:         DefaultChunkSize,
			ChunkOverlap:      DefaultChunkOverlap,
			IncludeExt:        DefaultIncludeExt,
			ExcludeExt:        DefaultExcludeExt,
			Concurrency:       DefaultIngestConcurrency,
			WorkDir:           "temporary_data",
		},
	}
}

// Load reads .env (if any), the YAML file at path (if it exists) and then the
// environment. A missing YAML file is not an error.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()

	s := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return s, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return s, err
		}
	}
	applyEnv(&s)
	return s, nil
}

// Use publishes s as the process-wide snapshot read by logging and middleware.
func Use(s Settings) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = s
}

func Current() Settings {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

func applyEnv(s *Settings) {
	setBool(&s.IsProd, "IS_PROD")
	setString(&s.ListenAddr, "LISTEN_ADDR")
	setString(&s.AuthToken, "AUTH_TOKEN")
	setBool(&s.NoAuth, "NO_AUTH_BYPASS")

	setString(&s.Embeddings.Provider, "EMBEDDINGS_PROVIDER")
	setString(&s.Embeddings.Model, "EMBEDDINGS_MODEL")
	setInt(&s.Embeddings.Dimension, "EMBEDDINGS_DIM")
	setString(&s.Embeddings.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&s.Embeddings.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&s.Embeddings.OpenAIBaseURL, "OPENAI_BASE_URL")

	setString(&s.Vector.Backend, "VECTOR_BACKEND")
	setString(&s.Vector.QdrantHost, "QDRANT_HOST")
	setInt(&s.Vector.QdrantPort, "QDRANT_PORT")
	setString(&s.Vector.QdrantAPIKey, "QDRANT_API_KEY")
	setBool(&s.Vector.QdrantUseTLS, "QDRANT_USE_TLS")
	setString(&s.Vector.SQLitePath, "SQLITE_PATH")

	setString(&s.Redis.Addr, "REDIS_ADDR")
	setString(&s.Redis.Password, "REDIS_PASSWORD")

	setString(&s.Ingest.DefaultCollection, "DEFAULT_COLLECTION")
	setInt(&s.Ingest.ChunkSize, "CHUNK_SIZE")
	setInt(&s.Ingest.ChunkOverlap, "CHUNK_OVERLAP")
	setString(&s.Ingest.IncludeExt, "INCLUDE_EXT")
	setString(&s.Ingest.ExcludeExt, "EXCLUDE_EXT")
	setInt(&s.Ingest.Concurrency, "INGEST_CONCURRENCY")
	setString(&s.Ingest.BindMap, "BIND_MAP")
	setString(&s.Ingest.StageRoot, "STAGE_ROOT")
	setString(&s.Ingest.WorkDir, "WORK_DIR")
	setBool(&s.Ingest.ReadViaContainer, "READ_VIA_CONTAINER")
	setBool(&s.Ingest.AllowPrivateFetch, "ALLOW_PRIVATE_FETCH")

	// the openai provider has its own default model
	if s.Embeddings.Provider == "openai" && s.Embeddings.Model == GoogleEmbeddingModel {
		s.Embeddings.Model = OpenAIEmbeddingModel
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
