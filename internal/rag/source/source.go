// Package source reads every supported source kind into RawDocuments.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/bmatcuk/doublestar/v4"
)

// SingleFileRoot is the DocMap root used when a source is one file.
const SingleFileRoot = "local-file"

const skipDirsPattern = "**/{.git,.svn,.hg,node_modules,.venv,venv,__pycache__,site,build,dist}"

type Options struct {
	// WorkDir holds git clones under WorkDir/repos.
	WorkDir      string
	AllowPrivate bool
	// FetchTimeout bounds a git clone or refresh.
	FetchTimeout time.Duration
	WebTimeout   time.Duration
	MaxWebSize   int64
	PageTimeout  time.Duration
}

func DefaultOptions(settings config.IngestSettings) Options {
	return Options{
		WorkDir:      settings.WorkDir,
		AllowPrivate: settings.AllowPrivateFetch,
		FetchTimeout: config.SourceFetchTimeout,
		WebTimeout:   config.WebFetchTimeout,
		MaxWebSize:   config.MaxWebContentSize,
		PageTimeout:  config.PDFPageExtractTimeout,
	}
}

// Batch is the output of one source. Docs is lazy and can be ranged once.
type Batch struct {
	Spec       knowledgeModel.SourceSpec
	Origin     knowledgeModel.Origin
	SingleFile bool
	Docs       iter.Seq2[knowledgeModel.RawDocument, error]
}

type Reader struct {
	opts      Options
	fetcher   *webFetcher
	converter *htmlConverter
}

func NewReader(opts Options) *Reader {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = config.SourceFetchTimeout
	}
	if opts.WebTimeout <= 0 {
		opts.WebTimeout = config.WebFetchTimeout
	}
	if opts.MaxWebSize <= 0 {
		opts.MaxWebSize = config.MaxWebContentSize
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = config.PDFPageExtractTimeout
	}
	return &Reader{
		opts:      opts,
		fetcher:   newWebFetcher(opts.WebTimeout, opts.MaxWebSize, opts.AllowPrivate),
		converter: newHTMLConverter(),
	}
}

// Open prepares a source (clone, fetch, stat) and returns its documents.
// Every error names the offending source.
func (r *Reader) Open(ctx context.Context, spec knowledgeModel.SourceSpec) (*Batch, error) {
	batch, err := r.open(ctx, spec)
	if err != nil {
		return nil, fetchError(spec, err)
	}
	docs := batch.Docs
	batch.Docs = func(yield func(knowledgeModel.RawDocument, error) bool) {
		for doc, err := range docs {
			if err != nil {
				err = fetchError(spec, err)
			}
			if !yield(doc, err) {
				return
			}
		}
	}
	return batch, nil
}

func (r *Reader) open(ctx context.Context, spec knowledgeModel.SourceSpec) (*Batch, error) {
	switch s := spec.(type) {
	case knowledgeModel.LocalPath:
		return r.openLocal(ctx, s)
	case knowledgeModel.GitURL:
		return r.openGit(ctx, s)
	case knowledgeModel.WebURL:
		return r.openWeb(ctx, s)
	case knowledgeModel.InlineText:
		return r.openInline(s), nil
	case knowledgeModel.PDFPath:
		return r.openFile(ctx, s, s.Path)
	case knowledgeModel.TXTPath:
		return r.openFile(ctx, s, s.Path)
	case knowledgeModel.DOCXPath:
		return r.openFile(ctx, s, s.Path)
	case knowledgeModel.HTMLDoc:
		if s.Path != "" {
			return r.openFile(ctx, s, s.Path)
		}
		return r.openInlineHTML(s)
	}
	return nil, fmt.Errorf("%w: %T", knowledgeModel.ErrUnsupportedSource, spec)
}

func (r *Reader) openLocal(ctx context.Context, s knowledgeModel.LocalPath) (*Batch, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", knowledgeModel.ErrPathNotFound, s.Ref())
		}
		return nil, err
	}
	if !info.IsDir() {
		return r.openFile(ctx, s, s.Path)
	}
	return &Batch{
		Spec:   s,
		Origin: knowledgeModel.Origin{Root: s.Ref(), Commit: gitCommit(ctx, s.Path)},
		Docs:   r.walk(ctx, s.Path, s.Ref(), s.Filter),
	}, nil
}

func (r *Reader) openGit(ctx context.Context, s knowledgeModel.GitURL) (*Batch, error) {
	cloneCtx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()
	dir, err := cloneOrRefresh(cloneCtx, s.URL, filepath.Join(r.opts.WorkDir, config.CloneDirName))
	if err != nil {
		return nil, err
	}
	return &Batch{
		Spec:   s,
		Origin: knowledgeModel.Origin{Root: s.URL, Commit: gitCommit(ctx, dir)},
		Docs:   r.walk(ctx, dir, s.URL, s.Filter),
	}, nil
}

func (r *Reader) openWeb(ctx context.Context, s knowledgeModel.WebURL) (*Batch, error) {
	res, err := r.fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	name := urlName(s.URL)
	doc := knowledgeModel.RawDocument{
		SourceRef: s.URL,
		Key:       s.URL,
		Path:      name,
		Bytes:     res.Body,
		SizeBytes: int64(len(res.Body)),
	}

	switch {
	case strings.Contains(res.ContentType, "html"):
		text, title, err := r.converter.Convert(res.Body, strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			return nil, err
		}
		doc.Text, doc.Title, doc.ContentType = text, title, "text/markdown"
	case strings.Contains(res.ContentType, "pdf"):
		text, err := extractPDFBytes(ctx, res.Body, name, r.opts.PageTimeout)
		if err != nil {
			return nil, err
		}
		doc.Text, doc.ContentType = CoerceMarkdown(text), "text/markdown"
	default:
		doc.Text, doc.ContentType = CoerceMarkdown(strings.ToValidUTF8(string(res.Body), "�")), "text/plain"
	}
	if doc.Title == "" {
		doc.Title = DeriveTitle(doc.Text)
	}
	return &Batch{Spec: s, Origin: knowledgeModel.Origin{Root: s.URL}, SingleFile: true, Docs: one(doc)}, nil
}

func (r *Reader) openInline(s knowledgeModel.InlineText) *Batch {
	name := InlineName(s.Name)
	text := CoerceMarkdown(s.Text)
	doc := knowledgeModel.RawDocument{
		SourceRef:   s.Ref(),
		Key:         "inline:" + name,
		Path:        name,
		Bytes:       []byte(s.Text),
		Text:        text,
		ContentType: "text/markdown",
		SizeBytes:   int64(len(s.Text)),
		Title:       DeriveTitle(text),
	}
	return &Batch{Spec: s, Origin: knowledgeModel.Origin{Root: SingleFileRoot, Commit: unknownCommit}, SingleFile: true, Docs: one(doc)}
}

func (r *Reader) openInlineHTML(s knowledgeModel.HTMLDoc) (*Batch, error) {
	name := SafeFilename(s.Name, "page.html")
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	text, title, err := r.converter.Convert([]byte(s.Content), stem)
	if err != nil {
		return nil, err
	}
	doc := knowledgeModel.RawDocument{
		SourceRef:   s.Ref(),
		Key:         "inline:" + stem + ".md",
		Path:        stem + ".md",
		Bytes:       []byte(s.Content),
		Text:        text,
		ContentType: "text/markdown",
		SizeBytes:   int64(len(s.Content)),
		Title:       title,
	}
	return &Batch{Spec: s, Origin: knowledgeModel.Origin{Root: SingleFileRoot, Commit: unknownCommit}, SingleFile: true, Docs: one(doc)}, nil
}

// openFile reads a single file eagerly so a corrupt file fails at Open.
func (r *Reader) openFile(ctx context.Context, spec knowledgeModel.SourceSpec, path string) (*Batch, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", knowledgeModel.ErrPathNotFound, spec.Ref())
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", knowledgeModel.ErrUnsupportedSource, spec.Ref())
	}
	doc, err := r.readFile(ctx, path, forcedKind(spec))
	if err != nil {
		return nil, err
	}
	doc.SourceRef = spec.Ref()
	doc.Key = spec.Ref()
	doc.Path = filepath.Base(path)
	return &Batch{Spec: spec, Origin: knowledgeModel.Origin{Root: SingleFileRoot, Commit: unknownCommit}, SingleFile: true, Docs: one(doc)}, nil
}

func forcedKind(spec knowledgeModel.SourceSpec) string {
	switch spec.(type) {
	case knowledgeModel.PDFPath:
		return ".pdf"
	case knowledgeModel.HTMLDoc:
		return ".html"
	case knowledgeModel.DOCXPath:
		return ".docx"
	case knowledgeModel.TXTPath:
		return ".txt"
	}
	return ""
}

// walk yields every file under dir that passes the filter, skipping VCS,
// dependency and build directories.
func (r *Reader) walk(ctx context.Context, dir, root string, filter knowledgeModel.ExtFilter) iter.Seq2[knowledgeModel.RawDocument, error] {
	return func(yield func(knowledgeModel.RawDocument, error) bool) {
		// WalkDir does not descend into a symlinked root, and staged roots are symlinks
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
		stopped := false
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if rel != "." && skipDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !Allowed(path, filter) {
				return nil
			}

			doc, readErr := r.readFile(ctx, path, "")
			if readErr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// one unreadable file does not fail the whole tree
				logger_i.FromContext(ctx, "source").Warn("Skipping unreadable file", "root", root, "path", rel, "error", readErr)
				return nil
			}
			doc.SourceRef = root
			doc.Key = root + "::" + rel
			doc.Path = rel
			if !yield(doc, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(knowledgeModel.RawDocument{}, err)
		}
	}
}

func skipDir(rel string) bool {
	ok, _ := doublestar.Match(skipDirsPattern, rel)
	return ok
}

// Allowed applies an extension filter; exclude wins over include.
func Allowed(path string, filter knowledgeModel.ExtFilter) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, x := range filter.Exclude {
		if ext == x {
			return false
		}
	}
	if len(filter.Include) == 0 {
		return true
	}
	for _, in := range filter.Include {
		if ext == in {
			return true
		}
	}
	return false
}

// readFile converts a file to text by extension, or by kind when set.
func (r *Reader) readFile(ctx context.Context, path, kind string) (knowledgeModel.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return knowledgeModel.RawDocument{}, err
	}
	if kind == "" {
		kind = strings.ToLower(filepath.Ext(path))
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	doc := knowledgeModel.RawDocument{
		Bytes:       data,
		SizeBytes:   int64(len(data)),
		ContentType: mediaType(path),
	}

	var text string
	switch kind {
	case ".pdf":
		text, err = extractPDFBytes(ctx, data, base, r.opts.PageTimeout)
		doc.ContentType = "application/pdf"
	case ".html", ".htm":
		text, doc.Title, err = r.converter.Convert(data, stem)
		doc.ContentType = "text/html"
	case ".docx", ".odt", ".rtf":
		text, err = extractDocument(path)
	default:
		text = strings.ToValidUTF8(string(data), "�")
	}
	if err != nil {
		return knowledgeModel.RawDocument{}, err
	}

	doc.Text = CoerceMarkdown(text)
	if doc.Title == "" {
		doc.Title = DeriveTitle(doc.Text)
	}
	if doc.Title == "" {
		doc.Title = stem
	}
	return doc, nil
}

func one(doc knowledgeModel.RawDocument) iter.Seq2[knowledgeModel.RawDocument, error] {
	return func(yield func(knowledgeModel.RawDocument, error) bool) {
		yield(doc, nil)
	}
}

func fetchError(spec knowledgeModel.SourceSpec, err error) error {
	var sfe *knowledgeModel.SourceFetchError
	if errors.As(err, &sfe) {
		return err
	}
	return &knowledgeModel.SourceFetchError{Source: spec.Ref(), Kind: spec.Kind(), Err: err}
}
