// # internal/engine/parser/loader.go
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"untangle/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c_sharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

type LanguageSpec struct {
	Extensions       []string
	TestFileSuffixes []string
}

var defaultRegistry = map[string]LanguageSpec{
	"csharp":     {Extensions: []string{".cs"}, TestFileSuffixes: []string{"Test.cs", "Tests.cs"}},
	"go":         {Extensions: []string{".go"}, TestFileSuffixes: []string{"_test.go"}},
	"python":     {Extensions: []string{".py"}, TestFileSuffixes: []string{"_test.py"}},
	"java":       {Extensions: []string{".java"}, TestFileSuffixes: []string{"Test.java", "Tests.java"}},
	"javascript": {Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, TestFileSuffixes: []string{".test.js", ".spec.js"}},
	"typescript": {Extensions: []string{".ts", ".mts", ".cts"}, TestFileSuffixes: []string{".test.ts", ".spec.ts", ".d.ts"}},
	"tsx":        {Extensions: []string{".tsx"}, TestFileSuffixes: []string{".test.tsx", ".spec.tsx"}},
	"rust":       {Extensions: []string{".rs"}},
}

// KnownLanguages lists every language id with a compiled-in grammar.
func KnownLanguages() []string {
	return util.SortedStringKeys(defaultRegistry)
}

type GrammarLoader struct {
	languages  map[string]*sitter.Language
	registry   map[string]LanguageSpec
	extensions map[string]string
}

// NewGrammarLoader loads the grammars for the given language ids. An empty
// list enables every known language.
func NewGrammarLoader(enabled []string) (*GrammarLoader, error) {
	if len(enabled) == 0 {
		enabled = KnownLanguages()
	}
	gl := &GrammarLoader{
		languages:  make(map[string]*sitter.Language),
		registry:   make(map[string]LanguageSpec),
		extensions: make(map[string]string),
	}

	for _, raw := range enabled {
		langID := strings.ToLower(strings.TrimSpace(raw))
		spec, ok := defaultRegistry[langID]
		if !ok {
			return nil, fmt.Errorf("unknown language %q", raw)
		}
		switch langID {
		case "csharp":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_c_sharp.Language())
		case "go":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_go.Language())
		case "java":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_java.Language())
		case "javascript":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_javascript.Language())
		case "python":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_python.Language())
		case "rust":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_rust.Language())
		case "tsx":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case "typescript":
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		}
		gl.registry[langID] = spec
		for _, ext := range spec.Extensions {
			gl.extensions[ext] = langID
		}
	}
	return gl, nil
}

func (gl *GrammarLoader) Language(langID string) (*sitter.Language, bool) {
	lang, ok := gl.languages[langID]
	return lang, ok
}

func (gl *GrammarLoader) Languages() []string {
	return util.SortedStringKeys(gl.languages)
}

// DetectLanguage maps a path to an enabled language id, or "" when the file
// is unsupported.
func (gl *GrammarLoader) DetectLanguage(path string) string {
	return gl.extensions[strings.ToLower(filepath.Ext(path))]
}

func (gl *GrammarLoader) IsTestFile(path string) bool {
	langID := gl.DetectLanguage(path)
	if langID == "" {
		return false
	}
	base := filepath.Base(path)
	for _, suffix := range gl.registry[langID].TestFileSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	if langID == "python" && strings.HasPrefix(base, "test_") {
		return true
	}
	return false
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	extensions := make([]string, 0, len(gl.extensions))
	for ext := range gl.extensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
