package apidocs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/titanfed/titan/internal/api/v1"
	"github.com/titanfed/titan/internal/pkg/apidocs"
)

const specPath = "../../../public/docs/v1/openapi.yml"

func TestLoad(t *testing.T) {
	doc, err := apidocs.Load(context.Background(), specPath)
	require.NoError(t, err)
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.NotNil(t, doc.Components.SecuritySchemes["AdminApiKey"])
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\ninfo:\n  title: x\npaths: {}\n"), 0o644))

	_, err := apidocs.Load(context.Background(), path)
	assert.Error(t, err)

	_, err = apidocs.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestFiberPath(t *testing.T) {
	assert.Equal(t, "/api/v1/admin/subscriptions/:id/cancel", apidocs.FiberPath("/api/v1/admin/subscriptions/{id}/cancel"))
	assert.Equal(t, "/api/v1/health", apidocs.FiberPath("/api/v1/health"))
}

// Every route the service registers is documented, and nothing else is.
func TestOperationsMatchRoutes(t *testing.T) {
	doc, err := apidocs.Load(context.Background(), specPath)
	require.NoError(t, err)

	app := fiber.New()
	noop := func(c *fiber.Ctx) error { return nil }
	app.Post("/webhooks/safe2pay", noop)
	v1 := app.Group("/api/v1")
	server := apiv1.NewAPIServer(nil, nil)
	apiv1.RegisterHandlers(v1, server)
	apiv1.RegisterAdminHandlers(v1.Group("/admin"), server)

	var registered []string
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead {
			continue
		}
		registered = append(registered, r.Method+" "+r.Path)
	}

	var documented []string
	for _, op := range apidocs.Operations(doc) {
		documented = append(documented, op.String())
	}

	assert.ElementsMatch(t, documented, registered)
}
