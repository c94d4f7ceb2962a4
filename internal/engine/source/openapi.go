package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"untangle/internal/shared/util"

	"github.com/getkin/kin-openapi/openapi3"
)

var openAPIFileNames = map[string]bool{
	"openapi.json": true,
	"openapi.yaml": true,
	"openapi.yml":  true,
	"swagger.json": true,
	"swagger.yaml": true,
	"swagger.yml":  true,
}

// OpenAPIFileNames lists the conventional spec file names.
func OpenAPIFileNames() []string {
	return util.SortedStringKeys(openAPIFileNames)
}

// IsOpenAPIFile matches the conventional spec file names, plus
// "<name>.openapi.{json,yaml,yml}".
func IsOpenAPIFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if openAPIFileNames[base] {
		return true
	}
	for _, ext := range []string{".openapi.json", ".openapi.yaml", ".openapi.yml"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// CountOperations loads an OpenAPI document and counts its operations.
// External references are not followed.
func CountOperations(ctx context.Context, path string) (int, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return 0, fmt.Errorf("load openapi spec from %q: %w", path, err)
	}
	if doc == nil || doc.Paths == nil {
		return 0, nil
	}

	count := 0
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil {
				count++
			}
		}
	}
	return count, nil
}
