package ports

import (
	"context"
	"errors"
	"time"
	"untangle/internal/data/history"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/parser"
)

// ErrNoSourceFiles is returned by a SourceProvider when a module has a
// readable directory but nothing in it can be parsed.
var ErrNoSourceFiles = errors.New("module has no supported source files")

// SourceProvider gives metric calculators the analyzable units of a
// module. Implementations return an error when the module's sources cannot
// be analyzed; callers degrade to their fallback values.
type SourceProvider interface {
	Units(ctx context.Context, node graph.Node) ([]parser.Unit, error)
}

// EndpointSource is an optional extension for providers that can count
// endpoints declared outside code, such as OpenAPI documents.
type EndpointSource interface {
	OpenAPIOperations(ctx context.Context, node graph.Node) (int, error)
}

// HistoryStore abstracts run persistence for trends and graph ingestion.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) error
	LoadRuns(ctx context.Context, project string, since time.Time) ([]history.Run, error)
	SaveDescription(ctx context.Context, project string, desc graph.Description) error
	LatestDescription(ctx context.Context, project string) (graph.Description, bool, error)
}
