package mcpServer

import (
	"context"
	"net/http"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

// Server exposes the rag service as MCP tools.
type Server struct {
	rag      rag.Service
	defaults config.IngestSettings
	server   *mcp.Server
	logger   *logger_i.Logger
}

func NewServer(ragService rag.Service, defaults config.IngestSettings) *Server {
	s := &Server{
		rag:      ragService,
		defaults: defaults,
		server:   mcp.NewServer(&mcp.Implementation{Name: "knowledgecore", Version: Version}, nil),
		logger:   logger_i.NewLogger("mcp"),
	}
	s.registerTools()
	return s
}

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// Run serves the tools over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

type IngestInput struct {
	Source       string                      `json:"source,omitempty" jsonschema:"github, local, inline, url, pdf, txt, html or docx"`
	Collection   string                      `json:"collection,omitempty" jsonschema:"target collection, defaults to the configured one"`
	Tenant       string                      `json:"tenant,omitempty" jsonschema:"tenant namespace prefixed to the collection, stdio only"`
	ChunkSize    int                         `json:"chunk_size,omitempty" jsonschema:"characters per chunk"`
	ChunkOverlap *int                        `json:"chunk_overlap,omitempty" jsonschema:"characters shared by consecutive chunks"`
	IncludeExt   []string                    `json:"include_ext,omitempty" jsonschema:"extensions to keep when walking a directory"`
	ExcludeExt   []string                    `json:"exclude_ext,omitempty" jsonschema:"extensions to skip when walking a directory"`
	GithubURL    string                      `json:"github_url,omitempty" jsonschema:"repository to clone"`
	LocalPath    string                      `json:"local_path,omitempty" jsonschema:"file or directory on the server"`
	URL          string                      `json:"url,omitempty" jsonschema:"web page to fetch"`
	Items        []knowledgeModel.IngestItem `json:"items,omitempty" jsonschema:"inline content, paths or urls"`
}

type QueryInput struct {
	Question       string   `json:"question" jsonschema:"the text to search for"`
	Collection     string   `json:"collection,omitempty" jsonschema:"collection to search, defaults to the configured one"`
	Tenant         string   `json:"tenant,omitempty" jsonschema:"tenant namespace prefixed to the collection, stdio only"`
	K              int      `json:"k,omitempty" jsonschema:"maximum number of results (default 6)"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" jsonschema:"minimum cosine score between 0 and 1"`
}

type AnalyzeInput struct {
	GithubURL  string   `json:"github_url,omitempty" jsonschema:"repository to clone"`
	LocalPath  string   `json:"local_path,omitempty" jsonschema:"file or directory on the server"`
	IncludeExt []string `json:"include_ext,omitempty" jsonschema:"extensions to keep"`
	ExcludeExt []string `json:"exclude_ext,omitempty" jsonschema:"extensions to skip"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_ingest",
		Description: "Fetch sources, chunk and embed them into a vector collection. Unchanged chunks are not re-embedded.",
	}, s.handleIngest)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_query",
		Description: "Return the chunks of a collection most similar to a question",
	}, s.handleQuery)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_analyze",
		Description: "List the files of a repository or local path with their content hashes, without embedding",
	}, s.handleAnalyze)
}

func (s *Server) handleIngest(ctx context.Context, call *mcp.CallToolRequest, in IngestInput) (*mcp.CallToolResult, api.IngestResponse, error) {
	ctx, tenant := resolveTenant(ctx, call, in.Tenant)
	req, err := adapter.ToIngestRequest(api.IngestRequest{
		Source:       in.Source,
		Collection:   in.Collection,
		ChunkSize:    in.ChunkSize,
		ChunkOverlap: in.ChunkOverlap,
		IncludeExt:   optionalExts(in.IncludeExt),
		ExcludeExt:   optionalExts(in.ExcludeExt),
		GithubURL:    in.GithubURL,
		LocalPath:    in.LocalPath,
		URL:          in.URL,
		Items:        in.Items,
	}, tenant, s.defaults)
	if err != nil {
		return nil, api.IngestResponse{}, err
	}

	res, err := s.rag.Ingest(ctx, req)
	if err != nil && res.Indexed == nil {
		return nil, api.IngestResponse{}, err
	}
	out := adapter.ToIngestResponse(res)
	if err != nil {
		code, retry := rag.HTTPStatus(err)
		out.Error = &api.ErrorResponse{Code: code, Message: rag.PublicMessage(err), Retry: retry}
	}
	return nil, out, nil
}

func (s *Server) handleQuery(ctx context.Context, call *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, api.QueryResponse, error) {
	ctx, tenant := resolveTenant(ctx, call, in.Tenant)
	req, err := adapter.ToAskRequest(api.QueryRequest{
		Question:       in.Question,
		Collection:     in.Collection,
		K:              in.K,
		ScoreThreshold: in.ScoreThreshold,
	}, tenant, s.defaults)
	if err != nil {
		return nil, api.QueryResponse{}, err
	}
	res, err := s.rag.Ask(ctx, req)
	if err != nil && !rag.IsQueryError(err) {
		return nil, api.QueryResponse{}, err
	}
	return nil, adapter.ToQueryResponse(res), nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, api.AnalyzeResponse, error) {
	dm, err := s.rag.Analyze(ctx, adapter.ToAnalyzeRequest(api.AnalyzeRequest{
		GithubURL:  in.GithubURL,
		LocalPath:  in.LocalPath,
		IncludeExt: optionalExts(in.IncludeExt),
		ExcludeExt: optionalExts(in.ExcludeExt),
	}))
	if err != nil {
		return nil, api.AnalyzeResponse{}, err
	}
	return nil, api.AnalyzeResponse{DocMap: dm}, nil
}

// resolveTenant picks the tenant a tool call runs as. Over HTTP only the
// request's X-Tenant-Id counts. The tool argument applies on stdio.
func resolveTenant(ctx context.Context, call *mcp.CallToolRequest, arg string) (context.Context, string) {
	if t, _ := ctx.Value(config.TENANT_ID_KEY).(string); t != "" {
		return ctx, t
	}
	tenant := knowledgeModel.SanitizeTenant(arg)
	if call != nil && call.Extra != nil && call.Extra.Header != nil {
		tenant = knowledgeModel.SanitizeTenant(call.Extra.Header.Get(config.TenantHeader))
	}
	if tenant == "" {
		return ctx, ""
	}
	return context.WithValue(ctx, config.TENANT_ID_KEY, tenant), tenant
}

// optionalExts keeps nil as nil so the configured defaults apply.
func optionalExts(exts []string) api.ExtList {
	if exts == nil {
		return nil
	}
	return api.ExtList(knowledgeModel.NormalizeExts(exts))
}
