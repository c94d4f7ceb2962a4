// # internal/engine/parser/parser.go
package parser

import (
	"fmt"
	"time"
	"untangle/internal/core/errors"
	"untangle/internal/shared/observability"
)

// Parser turns source files into units, types and call sites. It is safe
// for concurrent use.
type Parser struct {
	loader *GrammarLoader
	pools  map[string]*ParserPool
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader: loader,
		pools:  make(map[string]*ParserPool),
	}
	for _, langID := range loader.Languages() {
		lang, _ := loader.Language(langID)
		p.pools[langID] = NewParserPool(lang)
	}
	return p
}

func (p *Parser) Loader() *GrammarLoader {
	return p.loader
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.loader.DetectLanguage(path) != ""
}

func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	langID := p.loader.DetectLanguage(path)
	if langID == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	profile, ok := profiles[langID]
	pool := p.pools[langID]
	if !ok || pool == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", langID))
	}

	started := time.Now()
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	file := &File{
		Path:     path,
		Language: langID,
		ParsedAt: time.Now(),
	}
	extract(profile, tree.RootNode(), content, file)

	observability.SourceFilesParsed.WithLabelValues(langID).Inc()
	observability.ParsingDuration.WithLabelValues(langID).Observe(time.Since(started).Seconds())
	return file, nil
}
