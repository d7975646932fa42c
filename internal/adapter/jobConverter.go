package adapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Step:   string(job.CurrentStep),
	}
	if job.JobPayload.Result != nil {
		res := ToIngestResponse(*job.JobPayload.Result)
		result.Ingest = &res
	}

	return api.JobResponse{
		Id:        job.Id,
		Tenant:    job.Tenant,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}

// ToIngestRequest applies the configured defaults and qualifies the
// collection with the tenant.
func ToIngestRequest(in api.IngestRequest, tenant string, defaults config.IngestSettings) (knowledgeModel.IngestRequest, error) {
	collection, err := collectionName(in.Collection, tenant, defaults)
	if err != nil {
		return knowledgeModel.IngestRequest{}, err
	}

	out := knowledgeModel.IngestRequest{
		Source:        knowledgeModel.SourceKind(strings.ToLower(strings.TrimSpace(in.Source))),
		Collection:    collection,
		ChunkSize:     in.ChunkSize,
		ChunkOverlap:  defaults.ChunkOverlap,
		IncludeExt:    in.IncludeExt,
		ExcludeExt:    in.ExcludeExt,
		GithubURL:     strings.TrimSpace(in.GithubURL),
		LocalPath:     strings.TrimSpace(in.LocalPath),
		URL:           strings.TrimSpace(in.URL),
		Items:         in.Items,
		BindMap:       strings.TrimSpace(in.BindMap),
		StageIntoBind: in.StageIntoBind,
	}
	if out.ChunkSize == 0 {
		out.ChunkSize = defaults.ChunkSize
	}
	if in.ChunkOverlap != nil {
		out.ChunkOverlap = *in.ChunkOverlap
	}
	if in.IncludeExt == nil {
		out.IncludeExt = knowledgeModel.SplitExtList(defaults.IncludeExt)
	}
	if in.ExcludeExt == nil {
		out.ExcludeExt = knowledgeModel.SplitExtList(defaults.ExcludeExt)
	}
	if out.Source == "" {
		out.Source = inferSource(out)
	}
	return out, nil
}

// inferSource picks the source when the caller gave only one shortcut field.
func inferSource(req knowledgeModel.IngestRequest) knowledgeModel.SourceKind {
	switch {
	case req.GithubURL != "":
		return knowledgeModel.KindGit
	case req.LocalPath != "":
		return knowledgeModel.KindLocal
	case req.URL != "":
		return knowledgeModel.KindWeb
	case len(req.Items) > 0:
		return knowledgeModel.KindInline
	}
	return ""
}

func ToIngestResponse(res knowledgeModel.IngestResult) api.IngestResponse {
	out := api.IngestResponse{
		Indexed: res.Indexed,
		Errors:  res.Errors,
		Stats:   res.Stats,
		DocMaps: res.DocMaps,
	}
	if out.Indexed == nil {
		out.Indexed = []string{}
	}
	if out.Errors == nil {
		out.Errors = []knowledgeModel.SourceFailure{}
	}
	return out
}

func ToAskRequest(in api.QueryRequest, tenant string, defaults config.IngestSettings) (rag.AskRequest, error) {
	collection, err := collectionName(in.Collection, tenant, defaults)
	if err != nil {
		return rag.AskRequest{}, err
	}
	out := rag.AskRequest{
		Question:       strings.TrimSpace(in.Question),
		Collection:     collection,
		K:              in.K,
		ScoreThreshold: config.DefaultScoreThreshold,
		WithStats:      in.WithStats,
	}
	if out.Question == "" {
		out.Question = strings.TrimSpace(in.Q)
	}
	if out.K == 0 {
		out.K = in.TopK
	}
	if out.K == 0 {
		out.K = config.DefaultTopK
	}
	if in.ScoreThreshold != nil {
		out.ScoreThreshold = *in.ScoreThreshold
	}
	return out, nil
}

func ToQueryResponse(res rag.AskResult) api.QueryResponse {
	return api.QueryResponse{
		Results:        res.Results,
		K:              res.K,
		ScoreThreshold: res.ScoreThreshold,
		Stats:          res.Stats,
		Message:        res.Message,
	}
}

func ToAnalyzeRequest(in api.AnalyzeRequest) knowledgeModel.AnalyzeRequest {
	return knowledgeModel.AnalyzeRequest{
		GithubURL:  strings.TrimSpace(in.GithubURL),
		LocalPath:  strings.TrimSpace(in.LocalPath),
		IncludeExt: in.IncludeExt,
		ExcludeExt: in.ExcludeExt,
	}
}

// CollectionName resolves the collection a stats or reset call targets.
func CollectionName(raw, tenant string, defaults config.IngestSettings) (string, error) {
	return collectionName(raw, tenant, defaults)
}

func collectionName(raw, tenant string, defaults config.IngestSettings) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = defaults.DefaultCollection
	}
	return knowledgeModel.QualifiedCollection(tenant, raw)
}
