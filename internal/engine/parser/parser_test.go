package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T, langs ...string) *Parser {
	t.Helper()
	loader, err := NewGrammarLoader(langs)
	require.NoError(t, err)
	return NewParser(loader)
}

func unitByName(t *testing.T, file *File, name string) Unit {
	t.Helper()
	for _, u := range file.Units {
		if u.Name == name {
			return u
		}
	}
	t.Fatalf("unit %q not found in %+v", name, file.Units)
	return Unit{}
}

func callNames(file *File) []string {
	names := make([]string, 0, len(file.Calls))
	for _, c := range file.Calls {
		names = append(names, c.Name)
	}
	return names
}

func TestParseFile_Go(t *testing.T) {
	src := `package svc

import "net/http"

func Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" && r.URL != nil {
		w.WriteHeader(200)
	}
	for i := 0; i < 3; i++ {
		helper(i)
	}
}

func helper(n int) int {
	switch n {
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 0
	}
}

type Service struct{}

func (s *Service) Run() { store.Save("x") }
`
	file, err := newTestParser(t, "go").ParseFile("svc/handler.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, file.Units, 3)

	handle := unitByName(t, file, "Handle")
	assert.Equal(t, UnitFunction, handle.Kind)
	assert.True(t, handle.Exported)
	assert.Equal(t, 4, handle.Cyclomatic)
	assert.Equal(t, []string{"HandlerFunc"}, handle.Markers)
	assert.Equal(t, 5, handle.Location.Line)

	helper := unitByName(t, file, "helper")
	assert.False(t, helper.Exported)
	assert.Equal(t, 3, helper.Cyclomatic)
	assert.Empty(t, helper.Markers)

	run := unitByName(t, file, "Run")
	assert.Equal(t, UnitMethod, run.Kind)
	assert.Equal(t, 1, run.Cyclomatic)

	require.Len(t, file.Types, 1)
	assert.Equal(t, Symbol{Name: "Service", Exported: true, Location: file.Types[0].Location}, file.Types[0])

	assert.ElementsMatch(t, []string{"WriteHeader", "helper", "Save"}, callNames(file))
	for _, c := range file.Calls {
		if c.Name == "Save" {
			assert.Equal(t, "store", c.Qualifier)
		}
	}
}

func TestParseFile_Python(t *testing.T) {
	src := `import flask

app = flask.Flask(__name__)

@app.route("/users")
def list_users():
    if a and b:
        return [u for u in users]
    return []

class Repo:
    def __init__(self):
        self.items = []

    def _hidden(self):
        pass
`
	file, err := newTestParser(t, "python").ParseFile("api/views.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, file.Units, 3)

	list := unitByName(t, file, "list_users")
	assert.Equal(t, UnitFunction, list.Kind)
	assert.True(t, list.Exported)
	assert.Equal(t, 4, list.Cyclomatic)
	assert.Equal(t, []string{`@app.route("/users")`}, list.Markers)

	init := unitByName(t, file, "__init__")
	assert.Equal(t, UnitConstructor, init.Kind)
	assert.True(t, init.Exported)

	hidden := unitByName(t, file, "_hidden")
	assert.Equal(t, UnitMethod, hidden.Kind)
	assert.False(t, hidden.Exported)

	require.Len(t, file.Types, 1)
	assert.Equal(t, "Repo", file.Types[0].Name)
	assert.ElementsMatch(t, []string{"Flask", "route"}, callNames(file))
}

func TestParseFile_Java(t *testing.T) {
	src := `package demo;

@RestController
public class UserController {
    public UserController() {}

    @GetMapping("/users")
    public List<User> list() {
        for (User u : repo.findAll()) {
            if (u.active() || u.admin()) { count++; }
        }
        return new ArrayList<>();
    }

    private void helper() {}
}
`
	file, err := newTestParser(t, "java").ParseFile("src/UserController.java", []byte(src))
	require.NoError(t, err)
	require.Len(t, file.Units, 3)

	ctor := unitByName(t, file, "UserController")
	assert.Equal(t, UnitConstructor, ctor.Kind)
	assert.True(t, ctor.Exported)

	list := unitByName(t, file, "list")
	assert.True(t, list.Exported)
	assert.Equal(t, 4, list.Cyclomatic)
	assert.Equal(t, []string{`@GetMapping("/users")`}, list.Markers)

	assert.False(t, unitByName(t, file, "helper").Exported)

	require.Len(t, file.Types, 1)
	assert.True(t, file.Types[0].Exported)
	assert.ElementsMatch(t, []string{"findAll", "active", "admin", "ArrayList"}, callNames(file))
}

func TestParseFile_TypeScript(t *testing.T) {
	src := `export class UserService {
  @Get("/users")
  list(): string[] {
    return this.repo.find().map(u => u.name ?? "x");
  }

  private secret() {}
}

export const handler = (req: Request) => {
  return req.ok ? 1 : 0;
};

function internal() {}
`
	file, err := newTestParser(t, "typescript").ParseFile("src/users.ts", []byte(src))
	require.NoError(t, err)
	require.Len(t, file.Units, 4)

	list := unitByName(t, file, "list")
	assert.Equal(t, UnitMethod, list.Kind)
	assert.True(t, list.Exported)
	assert.Equal(t, 1, list.Cyclomatic)
	assert.Equal(t, []string{`@Get("/users")`}, list.Markers)

	assert.False(t, unitByName(t, file, "secret").Exported)

	handler := unitByName(t, file, "handler")
	assert.True(t, handler.Exported)
	assert.Equal(t, 2, handler.Cyclomatic)

	assert.False(t, unitByName(t, file, "internal").Exported)
	assert.Contains(t, callNames(file), "find")
	assert.Contains(t, callNames(file), "map")
}

func TestParseFile_Rust(t *testing.T) {
	src := `#[get("/health")]
pub fn health() -> String {
    if ready() && live() { "ok".into() } else { "down".into() }
}

struct Store;

impl Store {
    pub fn save(&self) {
        match self.kind { 1 => {}, _ => {} }
    }
}
`
	file, err := newTestParser(t, "rust").ParseFile("src/lib.rs", []byte(src))
	require.NoError(t, err)
	require.Len(t, file.Units, 2)

	health := unitByName(t, file, "health")
	assert.True(t, health.Exported)
	assert.Equal(t, 3, health.Cyclomatic)
	assert.Equal(t, []string{`#[get("/health")]`}, health.Markers)

	save := unitByName(t, file, "save")
	assert.Equal(t, UnitMethod, save.Kind)
	assert.Equal(t, 3, save.Cyclomatic)

	require.Len(t, file.Types, 1)
	assert.False(t, file.Types[0].Exported)
	assert.Contains(t, callNames(file), "ready")
}

const ordersControllerSrc = `using Microsoft.AspNetCore.Mvc;

namespace Shop.Orders;

[ApiController]
[Route("api/orders")]
public class OrdersController : ControllerBase
{
    private readonly OrderStore _store;

    public OrdersController(OrderStore store) { _store = store; }

    [HttpGet("{id}")]
    public IActionResult Get(int id)
    {
        if (id <= 0 || id > 1000)
        {
            return BadRequest();
        }
        foreach (var line in _store.Lines(id))
        {
            Audit.Log(line);
        }
        return Ok(new OrderView(id));
    }

    internal void Reset() { }
}

public interface IOrderStore
{
    IEnumerable<string> Lines(int id);
}
`

func TestParseFile_CSharp(t *testing.T) {
	file, err := newTestParser(t, "csharp").ParseFile("Shop.Orders/OrdersController.cs", []byte(ordersControllerSrc))
	require.NoError(t, err)
	assert.Equal(t, "csharp", file.Language)
	require.Len(t, file.Units, 4)

	ctor := unitByName(t, file, "OrdersController")
	assert.Equal(t, UnitConstructor, ctor.Kind)
	assert.True(t, ctor.Exported)
	assert.Empty(t, ctor.Markers)

	get := unitByName(t, file, "Get")
	assert.Equal(t, UnitMethod, get.Kind)
	assert.True(t, get.Exported)
	assert.Equal(t, 4, get.Cyclomatic)
	assert.Equal(t, []string{`[HttpGet("{id}")]`}, get.Markers)

	assert.False(t, unitByName(t, file, "Reset").Exported)
	assert.True(t, unitByName(t, file, "Lines").Exported, "interface members are public")

	require.Len(t, file.Types, 2)
	assert.Equal(t, "OrdersController", file.Types[0].Name)
	assert.True(t, file.Types[0].Exported)
	assert.Equal(t, "IOrderStore", file.Types[1].Name)

	assert.ElementsMatch(t, []string{"BadRequest", "Lines", "Log", "Ok", "OrderView"}, callNames(file))
	for _, c := range file.Calls {
		switch c.Name {
		case "Log":
			assert.Equal(t, "Audit", c.Qualifier)
		case "Lines":
			assert.Equal(t, "_store", c.Qualifier)
		}
	}
}

func TestParseFile_Unsupported(t *testing.T) {
	p := newTestParser(t, "go")
	_, err := p.ParseFile("main.py", []byte("print(1)"))
	assert.Error(t, err)
	assert.False(t, p.IsSupportedPath("main.py"))
	assert.True(t, p.IsSupportedPath("main.go"))
}

func TestGrammarLoader(t *testing.T) {
	_, err := NewGrammarLoader([]string{"cobol"})
	assert.Error(t, err)

	loader, err := NewGrammarLoader(nil)
	require.NoError(t, err)
	assert.Equal(t, KnownLanguages(), loader.Languages())
	assert.Equal(t, "tsx", loader.DetectLanguage("App.TSX"))
	assert.True(t, loader.IsTestFile("svc/handler_test.go"))
	assert.True(t, loader.IsTestFile("tests/test_views.py"))
	assert.False(t, loader.IsTestFile("svc/handler.go"))
	assert.Equal(t, "csharp", loader.DetectLanguage("Orders/OrdersController.cs"))
	assert.True(t, loader.IsTestFile("Orders.Tests/OrdersControllerTests.cs"))
	assert.Contains(t, loader.SupportedExtensions(), ".rs")
}
