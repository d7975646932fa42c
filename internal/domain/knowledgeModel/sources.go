package knowledgeModel

type SourceKind string

const (
	KindLocal  SourceKind = "local"
	KindGit    SourceKind = "github"
	KindWeb    SourceKind = "url"
	KindInline SourceKind = "inline"
	KindPDF    SourceKind = "pdf"
	KindTXT    SourceKind = "txt"
	KindHTML   SourceKind = "html"
	KindDOCX   SourceKind = "docx"
)

// SourceSpec is a closed set of source kinds. Only types in this package
// implement it; adapters switch over the concrete types.
type SourceSpec interface {
	Kind() SourceKind
	Ref() string
	sourceSpec()
}

// ExtFilter is an allow/deny list of lowercase extensions with a leading dot.
// An empty Include allows everything; Exclude wins over Include.
type ExtFilter struct {
	Include []string
	Exclude []string
}

type LocalPath struct {
	Path string
	// Root names the source in document keys and DocMaps when Path points at
	// a staged copy. Empty means Path.
	Root   string
	Filter ExtFilter
}

type GitURL struct {
	URL    string
	Filter ExtFilter
}

type WebURL struct {
	URL string
}

type InlineText struct {
	Name string
	Text string
}

type PDFPath struct {
	Path string
}

type TXTPath struct {
	Path string
}

// HTMLDoc is either a local html file or inline markup.
type HTMLDoc struct {
	Path    string
	Name    string
	Content string
}

type DOCXPath struct {
	Path string
}

func (LocalPath) Kind() SourceKind  { return KindLocal }
func (GitURL) Kind() SourceKind     { return KindGit }
func (WebURL) Kind() SourceKind     { return KindWeb }
func (InlineText) Kind() SourceKind { return KindInline }
func (PDFPath) Kind() SourceKind    { return KindPDF }
func (TXTPath) Kind() SourceKind    { return KindTXT }
func (HTMLDoc) Kind() SourceKind    { return KindHTML }
func (DOCXPath) Kind() SourceKind   { return KindDOCX }

func (s LocalPath) Ref() string {
	if s.Root != "" {
		return s.Root
	}
	return s.Path
}
func (s GitURL) Ref() string     { return s.URL }
func (s WebURL) Ref() string     { return s.URL }
func (s InlineText) Ref() string { return "inline:" + s.Name }
func (s PDFPath) Ref() string    { return s.Path }
func (s TXTPath) Ref() string    { return s.Path }
func (s DOCXPath) Ref() string   { return s.Path }
func (s HTMLDoc) Ref() string {
	if s.Path != "" {
		return s.Path
	}
	return "inline:" + s.Name
}

func (LocalPath) sourceSpec()  {}
func (GitURL) sourceSpec()     {}
func (WebURL) sourceSpec()     {}
func (InlineText) sourceSpec() {}
func (PDFPath) sourceSpec()    {}
func (TXTPath) sourceSpec()    {}
func (HTMLDoc) sourceSpec()    {}
func (DOCXPath) sourceSpec()   {}
