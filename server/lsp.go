package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/stacc/compiler"
	"github.com/chazu/stacc/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "stacc-lsp"

var lspLog = commonlog.GetLogger("stacc.lsp")

// symbol is a name bound by a document: a function definition or an
// assignment.
type symbol struct {
	name   string
	fn     *vm.Function
	span   compiler.Span
	detail string
}

// use is an occurrence of a name: a call or an identifier in an
// expression.
type use struct {
	name string
	span compiler.Span
}

// document is an open text document and what was last learned from it.
// symbols and uses come from the last text that parsed, so they survive
// while the user is mid-edit.
type document struct {
	text    string
	symbols []symbol
	uses    []use
}

// LspServer provides editor features for stacc source over stdio.
type LspServer struct {
	mu      sync.Mutex
	docs    map[string]*document
	globals vm.Snapshot

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// LspOption configures an LspServer.
type LspOption func(*LspServer)

// WithGlobals makes the variables of snap available to completion and
// hover in every document.
func WithGlobals(snap vm.Snapshot) LspOption {
	return func(s *LspServer) { s.globals = snap }
}

// NewLSP creates an LSP server.
func NewLSP(opts ...LspOption) *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		version: "0.1.0",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run serves on stdio until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	diagnostics := s.update(string(uri), params.TextDocument.Text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With full sync the last change carries the whole text.
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}

	diagnostics := s.update(string(uri), whole.Text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.close(string(uri))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.text(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	return s.complete(string(params.TextDocument.URI), prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.text(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(string(params.TextDocument.URI), word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, ok := s.text(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	locations := s.definition(string(params.TextDocument.URI), word)
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	text, ok := s.text(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.references(string(params.TextDocument.URI), word, params.Context.IncludeDeclaration), nil
}

// --- Document store ---

// update stores text for uri, reanalyzes it and returns its diagnostics.
func (s *LspServer) update(uri, text string) []protocol.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		doc = &document{}
		s.docs[uri] = doc
	}
	doc.text = text

	stmts, err := compiler.Parse(text)
	if err != nil {
		d := compiler.Diagnose(err, text)
		lspLog.Debugf("%s: %s", uri, d)
		return []protocol.Diagnostic{toLspDiagnostic(d)}
	}
	doc.symbols, doc.uses = analyze(stmts)
	return []protocol.Diagnostic{}
}

func (s *LspServer) close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

func (s *LspServer) text(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return "", false
	}
	return doc.text, true
}

// --- Analysis ---

// analyze collects the names bound and used by stmts, in source order,
// descending into function bodies.
func analyze(stmts []compiler.Stmt) ([]symbol, []use) {
	var symbols []symbol
	var uses []use
	var walkExpr func(e compiler.Expr)
	walkExpr = func(e compiler.Expr) {
		switch n := e.(type) {
		case *compiler.Identifier:
			uses = append(uses, use{name: n.Name, span: n.SpanVal})
		case *compiler.UnaryOp:
			walkExpr(n.Operand)
		case *compiler.BinaryOp:
			walkExpr(n.Lhs)
			walkExpr(n.Rhs)
		}
	}
	var walk func(stmts []compiler.Stmt)
	walk = func(stmts []compiler.Stmt) {
		for _, stmt := range stmts {
			switch n := stmt.(type) {
			case *compiler.FunctionDef:
				fn := vm.Function{Name: n.Name, Params: n.Params, Body: n.Body}
				symbols = append(symbols, symbol{name: n.Name, fn: &fn, span: n.SpanVal, detail: fn.String()})
				walk(n.Body)
			case *compiler.Assign:
				symbols = append(symbols, symbol{name: n.Name, span: n.SpanVal, detail: "variable"})
				walkExpr(n.Value)
			case *compiler.Push:
				walkExpr(n.Value)
			case *compiler.Print:
				walkExpr(n.Value)
			case *compiler.Call:
				uses = append(uses, use{name: n.Name, span: n.SpanVal})
			}
		}
	}
	walk(stmts)
	return symbols, uses
}

// complete returns keywords, document symbols and globals starting with
// prefix. An empty prefix matches everything.
func (s *LspServer) complete(uri, prefix string) []protocol.CompletionItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	for _, kw := range compiler.Keywords() {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	if doc, ok := s.docs[uri]; ok {
		for _, sym := range doc.symbols {
			if sym.fn != nil {
				add(sym.name, protocol.CompletionItemKindFunction, sym.detail)
			} else {
				add(sym.name, protocol.CompletionItemKindVariable, sym.detail)
			}
		}
	}
	for _, name := range s.globals.Names() {
		v := s.globals.Variables[name]
		if _, ok := v.(vm.Function); ok {
			add(name, protocol.CompletionItemKindFunction, v.String())
		} else {
			add(name, protocol.CompletionItemKindVariable, "global "+v.TypeName())
		}
	}

	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// hover describes the latest binding of word in the document, falling
// back to the globals.
func (s *LspServer) hover(uri, word string) *protocol.Hover {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	if doc, ok := s.docs[uri]; ok {
		for i := len(doc.symbols) - 1; i >= 0; i-- {
			if sym := doc.symbols[i]; sym.name == word {
				value = fmt.Sprintf("`%s`", sym.detail)
				if sym.fn == nil {
					value = fmt.Sprintf("`%s`: variable", sym.name)
				}
				break
			}
		}
	}
	if value == "" {
		v, ok := s.globals.Variables[word]
		if !ok {
			return nil
		}
		value = fmt.Sprintf("`%s` = `%s` (%s)", word, v, v.TypeName())
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// definition returns the locations where word is bound in the document.
// A function's location starts at its begin keyword.
func (s *LspServer) definition(uri, word string) []protocol.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	var locations []protocol.Location
	for _, sym := range doc.symbols {
		if sym.name == word {
			locations = append(locations, location(uri, doc.text, sym.span))
		}
	}
	return locations
}

// references returns every use of word, and its bindings when
// includeDeclaration is set.
func (s *LspServer) references(uri, word string, includeDeclaration bool) []protocol.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	var locations []protocol.Location
	if includeDeclaration {
		for _, sym := range doc.symbols {
			if sym.name == word {
				locations = append(locations, location(uri, doc.text, sym.span))
			}
		}
	}
	for _, u := range doc.uses {
		if u.name == word {
			locations = append(locations, location(uri, doc.text, u.span))
		}
	}
	return locations
}

// --- Conversions ---

func location(uri, text string, span compiler.Span) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentUri(uri),
		Range: spanRange(text, span),
	}
}

func spanRange(text string, span compiler.Span) protocol.Range {
	startLine, startCol := compiler.LineColumn(text, span.Start)
	endLine, endCol := compiler.LineColumn(text, span.End)
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(startLine), Character: protocol.UInteger(startCol)},
		End:   protocol.Position{Line: protocol.UInteger(endLine), Character: protocol.UInteger(endCol)},
	}
}

func toLspDiagnostic(d compiler.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(d.Line), Character: protocol.UInteger(d.Column)},
			End:   protocol.Position{Line: protocol.UInteger(d.EndLine), Character: protocol.UInteger(d.EndCol)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  d.Message,
	}
}

// --- Text extraction helpers ---

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	return line[start:col]
}

// extractWord returns the whole identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	return line[start:end]
}

// lineAt returns the line containing pos and the cursor column clamped
// to it.
func lineAt(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))
	return line, col, true
}

func isWordByte(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

func boolPtr(b bool) *bool {
	return &b
}
