package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeSrc = `package store

type Record struct{}

func Save(r Record) error { return nil }

func Load(id string) (Record, error) {
	if id == "" {
		return Record{}, nil
	}
	return Record{}, nil
}

func checksum() int { return 0 }
`

const apiSrc = `package api

import "example.com/store"

func Create(id string) error {
	rec, _ := store.Load(id)
	if err := store.Save(rec); err != nil {
		return err
	}
	return audit(id)
}

func audit(id string) error { return Save(id) }

func Save(id string) error { return nil }
`

const apiSpec = `openapi: 3.0.0
info:
  title: api
  version: "1.0"
paths:
  /records:
    get:
      responses:
        "200":
          description: ok
    post:
      responses:
        "201":
          description: created
  /records/{id}:
    delete:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "204":
          description: gone
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProvider(t *testing.T, root string) *Provider {
	t.Helper()
	loader, err := parser.NewGrammarLoader([]string{"go"})
	require.NoError(t, err)
	p, err := NewProvider(parser.NewParser(loader), Options{Root: root, CacheSize: 8, IORate: 1000, OpenAPI: true})
	require.NoError(t, err)
	return p
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "store", "store.go"), storeSrc)
	writeFile(t, filepath.Join(root, "store", "store_test.go"), "package store\nfunc TestX() { Save(Record{}) }\n")
	writeFile(t, filepath.Join(root, "api", "api.go"), apiSrc)
	writeFile(t, filepath.Join(root, "api", "openapi.yaml"), apiSpec)
	writeFile(t, filepath.Join(root, "api", "vendor", "dep", "dep.go"), "package dep\nfunc Dep() {}\n")
	writeFile(t, filepath.Join(root, "empty", "README.md"), "# nothing to parse\n")
	return root
}

func TestProvider_Units(t *testing.T) {
	root := fixture(t)
	p := newProvider(t, root)

	units, err := p.Units(context.Background(), graph.Node{Name: "Store", Path: "store"})
	require.NoError(t, err)
	require.Len(t, units, 3, "test files are skipped")

	analysis, err := p.Analyze(context.Background(), graph.Node{Name: "Store", Path: "store"})
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.Files)
	assert.True(t, analysis.Exported["Save"])
	assert.True(t, analysis.Exported["Record"])
	assert.False(t, analysis.Exported["checksum"])
	assert.True(t, analysis.Declared["checksum"])
}

func TestProvider_ProjectFilePathResolvesToDirectory(t *testing.T) {
	root := fixture(t)
	writeFile(t, filepath.Join(root, "store", "Store.csproj"), "<Project />")
	p := newProvider(t, root)

	units, err := p.Units(context.Background(), graph.Node{Name: "Store", Path: filepath.Join(root, "store", "Store.csproj")})
	require.NoError(t, err)
	assert.Len(t, units, 3)
}

func TestProvider_CountCalls(t *testing.T) {
	root := fixture(t)
	p := newProvider(t, root)
	api := graph.Node{Name: "Api", Path: "api"}
	store := graph.Node{Name: "Store", Path: "store"}

	// store.Load and store.Save count; Save(id) inside audit is api's own Save.
	n, err := p.CountCalls(context.Background(), api, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.CountCalls(context.Background(), store, api)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProvider_Unavailable(t *testing.T) {
	root := fixture(t)
	p := newProvider(t, root)

	_, err := p.Units(context.Background(), graph.Node{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNoSourcePath)

	_, err = p.Units(context.Background(), graph.Node{Name: "Empty", Path: "empty"})
	assert.ErrorIs(t, err, ErrNoSourceFiles)

	_, err = p.Units(context.Background(), graph.Node{Name: "Missing", Path: "does-not-exist"})
	assert.Error(t, err)

	_, err = p.CountCalls(context.Background(), graph.Node{Name: "Empty", Path: "empty"}, graph.Node{Name: "Store", Path: "store"})
	assert.ErrorIs(t, err, ErrNoSourceFiles)
}

func TestProvider_OpenAPIOperations(t *testing.T) {
	root := fixture(t)
	p := newProvider(t, root)

	n, err := p.OpenAPIOperations(context.Background(), graph.Node{Name: "Api", Path: "api"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	analysis, err := p.Analyze(context.Background(), graph.Node{Name: "Api", Path: "api"})
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.Files, "vendor directories are skipped")
}

func TestProvider_ExposureFromOpenAPIOnlyModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gateway", "openapi.yaml"), apiSpec)
	p := newProvider(t, root)
	gateway := graph.Node{Name: "Gateway", Path: "gateway"}

	_, err := p.Units(context.Background(), gateway)
	require.ErrorIs(t, err, ErrNoSourceFiles)

	res := metrics.NewExposureCalculator(nil, 0).Calculate(context.Background(), metrics.Input{Node: gateway, Source: p})
	assert.False(t, res.Fallback, res.Reason)
	assert.Equal(t, 3, res.OpenAPIEndpoints)
	assert.Equal(t, 33.0, res.Score)
}

func TestProvider_CSharpModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shop.Orders", "OrdersController.cs"), `namespace Shop.Orders;

[ApiController]
public class OrdersController
{
    [HttpGet]
    public string List() { return "[]"; }

    [HttpPost, Authorize]
    public void Create(string body)
    {
        if (body == null || body.Length == 0) { return; }
    }
}
`)
	writeFile(t, filepath.Join(root, "Shop.Orders", "OrdersControllerTests.cs"), "public class OrdersControllerTests { public void Lists() {} }\n")

	loader, err := parser.NewGrammarLoader([]string{"csharp"})
	require.NoError(t, err)
	p, err := NewProvider(parser.NewParser(loader), Options{Root: root, CacheSize: 8})
	require.NoError(t, err)
	orders := graph.Node{Name: "Shop.Orders", Path: "Shop.Orders"}

	units, err := p.Units(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, units, 2, "test files are skipped")

	in := metrics.Input{Node: orders, Source: p}
	exposure := metrics.NewExposureCalculator(nil, 0).Calculate(context.Background(), in)
	assert.False(t, exposure.Fallback, exposure.Reason)
	assert.Equal(t, 2, exposure.MarkerEndpoints)
	assert.Equal(t, 33.0, exposure.Score)

	complexity := metrics.ComplexityCalculator{Ceiling: 20}.Calculate(context.Background(), in)
	assert.False(t, complexity.Fallback, complexity.Reason)
	assert.InDelta(t, 2.0, complexity.AverageComplexity, 0.001)
}

func TestProvider_CacheInvalidate(t *testing.T) {
	root := fixture(t)
	p := newProvider(t, root)
	store := graph.Node{Name: "Store", Path: "store"}

	first, err := p.Analyze(context.Background(), store)
	require.NoError(t, err)
	second, err := p.Analyze(context.Background(), store)
	require.NoError(t, err)
	assert.Same(t, first, second)

	writeFile(t, filepath.Join(root, "store", "extra.go"), "package store\nfunc Extra() {}\n")
	p.Invalidate("STORE")
	third, err := p.Analyze(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Files)
}

func TestProvider_Affected(t *testing.T) {
	root := fixture(t)
	p := newProvider(t, root)
	nodes := []graph.Node{
		{Name: "Store", Path: "store"},
		{Name: "Api", Path: "api"},
		{Name: "Ghost", Path: "missing"},
	}

	got := p.Affected(nodes, []string{filepath.Join(root, "store", "store.go")})
	assert.Equal(t, []string{"Store"}, got)

	got = p.Affected(nodes, []string{filepath.Join(root, "api", "openapi.yaml"), filepath.Join(root, "store", "new.go")})
	assert.Equal(t, []string{"Store", "Api"}, got)

	assert.Empty(t, p.Affected(nodes, []string{filepath.Join(root, "empty", "README.md")}))
}

func TestIsOpenAPIFile(t *testing.T) {
	assert.True(t, IsOpenAPIFile("api/OpenAPI.yaml"))
	assert.True(t, IsOpenAPIFile("api/swagger.json"))
	assert.True(t, IsOpenAPIFile("api/billing.openapi.yml"))
	assert.False(t, IsOpenAPIFile("api/config.yaml"))
}
