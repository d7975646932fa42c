package api

import (
	"encoding/json"
	"time"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Tenant    string            `json:"tenant,omitempty" example:"acme"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse = JobOutgoingError

type Result struct {
	Status string          `json:"status" example:"COMPLETE"`
	Step   string          `json:"step,omitempty" example:"IngestProcessing"`
	Ingest *IngestResponse `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

// ExtList accepts either a JSON list of extensions or one comma-separated string.
type ExtList []string

func (e *ExtList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*e = knowledgeModel.NormalizeExts(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*e = knowledgeModel.SplitExtList(s)
	return nil
}

type IngestRequest struct {
	Source        string                      `json:"source" example:"github"`
	Collection    string                      `json:"collection,omitempty" example:"workshop_docs"`
	ChunkSize     int                         `json:"chunk_size,omitempty" example:"1200"`
	ChunkOverlap  *int                        `json:"chunk_overlap,omitempty" example:"160"`
	IncludeExt    ExtList                     `json:"include_ext,omitempty" swaggertype:"array,string"`
	ExcludeExt    ExtList                     `json:"exclude_ext,omitempty" swaggertype:"array,string"`
	GithubURL     string                      `json:"github_url,omitempty" example:"https://github.com/qdrant/qdrant"`
	LocalPath     string                      `json:"local_path,omitempty"`
	URL           string                      `json:"url,omitempty"`
	Items         []knowledgeModel.IngestItem `json:"items,omitempty"`
	BindMap       string                      `json:"bind_map,omitempty" example:"/home/me/work:/work"`
	StageIntoBind bool                        `json:"stage_into_bind,omitempty"`
}

type IngestResponse struct {
	Indexed []string                       `json:"indexed"`
	Errors  []knowledgeModel.SourceFailure `json:"errors"`
	Stats   knowledgeModel.IngestStats     `json:"post_stats"`
	DocMaps []knowledgeModel.DocMap        `json:"docmaps,omitempty"`
	// Error is set when the call stopped after some sources were written.
	Error *ErrorResponse `json:"error,omitempty"`
}

// QueryRequest accepts question or q, and k or top_k.
type QueryRequest struct {
	Question       string   `json:"question,omitempty" example:"How do I create a collection?"`
	Q              string   `json:"q,omitempty"`
	Collection     string   `json:"collection,omitempty" example:"workshop_docs"`
	K              int      `json:"k,omitempty" example:"6"`
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" example:"0.2"`
	WithStats      bool     `json:"with_stats,omitempty"`
}

type QueryResponse struct {
	Results        []knowledgeModel.QueryResult    `json:"results"`
	K              int                             `json:"k"`
	ScoreThreshold float64                         `json:"score_threshold"`
	Stats          *knowledgeModel.CollectionStats `json:"stats,omitempty"`
	Message        string                          `json:"message,omitempty"`
}

type AnalyzeRequest struct {
	GithubURL  string  `json:"github_url,omitempty"`
	LocalPath  string  `json:"local_path,omitempty"`
	IncludeExt ExtList `json:"include_ext,omitempty" swaggertype:"array,string"`
	ExcludeExt ExtList `json:"exclude_ext,omitempty" swaggertype:"array,string"`
}

type AnalyzeResponse struct {
	DocMap knowledgeModel.DocMap `json:"docmap"`
}

type StatsResponse = knowledgeModel.CollectionStats

type ResetResponse struct {
	Collection string `json:"collection"`
	Dropped    bool   `json:"dropped"`
}
