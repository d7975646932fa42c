package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/akolanti/knowledgecore/internal/adapter"
	"github.com/akolanti/knowledgecore/internal/api"
	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/source"
)

// PostIngestFilesHandler godoc
// @Summary      Upload files into a collection
// @Description  Receives files via multipart/form-data, stores them under the work directory and ingests them as path items. PDF, DOCX, HTML and text files are read by extension. Uploading a file with the same name again replaces its chunks.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Tenant-Id    header    string  false  "Tenant namespace"
// @Param        collection     formData  string  false  "Target collection"
// @Param        chunk_size     formData  int     false  "Characters per chunk"
// @Param        chunk_overlap  formData  int     false  "Characters shared by consecutive chunks"
// @Param        files          formData  file    true   "Files to ingest (repeatable)"
// @Success      200            {object}  api.IngestResponse  "Indexed files and post stats"
// @Failure      400            {object}  api.JobResponse     "Missing files or invalid form fields"
// @Failure      413            {object}  api.JobResponse     "Upload too large"
// @Failure      500            {object}  api.JobResponse     "Storage error"
// @Router       /ingest/files [post]
func PostIngestFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r.Context()) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	if err := r.ParseMultipartForm(config.MaxRequestBodySize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "", "Upload too large")
			return
		}
		logRH.Warn("Bad upload", "traceId", traceId(r.Context()), "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Expected multipart/form-data")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logRH.Warn("Couldn't remove multipart temp files", "error", err)
		}
	}()

	// "document" is the single-file field older clients send
	files := append(r.MultipartForm.File["files"], r.MultipartForm.File["document"]...)
	if len(files) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "files is required")
		return
	}

	body := api.IngestRequest{Collection: r.FormValue("collection")}
	if v := r.FormValue("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "chunk_size must be an integer")
			return
		}
		body.ChunkSize = n
	}
	if v := r.FormValue("chunk_overlap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "chunk_overlap must be an integer")
			return
		}
		body.ChunkOverlap = &n
	}

	collection, err := adapter.CollectionName(body.Collection, tenantId(r.Context()), handlerInstance.defaults)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dir := uploadDir(handlerInstance.defaults.WorkDir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logRH.Error("Couldn't create upload directory", "dir", dir, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	saved := make(map[string]bool, len(files))
	for _, fh := range files {
		path, err := saveUpload(fh, dir)
		if err != nil {
			logRH.Error("Couldn't store upload", "traceId", traceId(r.Context()), "file", fh.Filename, "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, fh.Filename, "Storage error")
			return
		}
		// the last part with a given name wins
		if !saved[path] {
			body.Items = append(body.Items, knowledgeModel.IngestItem{Path: path})
			saved[path] = true
		}
	}

	req, err := adapter.ToIngestRequest(body, tenantId(r.Context()), handlerInstance.defaults)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logRH.Info("Ingesting uploads", "traceId", traceId(r.Context()), "collection", req.Collection, "files", len(files))
	res, err := handlerInstance.ragService.Ingest(r.Context(), req)
	writeIngestResult(w, r, res, err)
}

// uploadDir keeps uploads per collection so a file uploaded again under the
// same name lands on the same path and keeps its document key.
func uploadDir(workDir, collection string) string {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return filepath.Join(workDir, config.UploadDirName, collection)
}

// saveUpload writes the part to a temp file and renames it into place.
func saveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	name := source.SafeFilename(fh.Filename, "upload.txt")
	if name == "." || name == ".." {
		name = "upload.txt"
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}
