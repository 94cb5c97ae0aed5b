package apidocs

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

// Operation is one documented method and path, with the path in Fiber syntax.
type Operation struct {
	Method string
	Path   string
}

func (o Operation) String() string {
	return o.Method + " " + o.Path
}

// Load reads the OpenAPI document at path and validates it.
func Load(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return doc, nil
}

// Operations lists every documented operation, sorted by path then method.
func Operations(doc *openapi3.T) []Operation {
	var ops []Operation
	if doc == nil || doc.Paths == nil {
		return ops
	}
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			ops = append(ops, Operation{Method: strings.ToUpper(method), Path: FiberPath(path)})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

// FiberPath turns /subscriptions/{id} into /subscriptions/:id.
func FiberPath(path string) string {
	return pathParam.ReplaceAllString(path, ":$1")
}
