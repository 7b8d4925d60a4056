package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/internal/metrics"
	"github.com/aretw0/csdlc/pkg/compliance"
)

const validDoc = `<?xml version="1.0" encoding="utf-8"?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:DataServices>
    <Schema Namespace="Sales" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EntityType Name="Order">
        <Key><PropertyRef Name="ID"/></Key>
        <Property Name="ID" Type="Edm.Int32" Nullable="false"/>
      </EntityType>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	rr := do(t, NewHandler(compliance.New()), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	rr := do(t, NewHandler(compliance.New()), http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "csdlc-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, APIVersion, resp["api_version"])
}

func TestValidate(t *testing.T) {
	h := NewHandler(compliance.New())

	t.Run("Compliant document", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate", ValidateRequest{Name: "sales.xml", Content: validDoc})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["compliant"])
		assert.Equal(t, "sales.xml", resp["source"])
	})

	t.Run("Malformed document is a finding", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate", ValidateRequest{Content: "<Schema"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"compliant":false`)
	})

	t.Run("Missing content rejected", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate", ValidateRequest{Name: "x.xml"})
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, []string{"Content: required"}, resp.Fields)
	})

	t.Run("Garbage body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewBufferString("{"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestPathEndpoints(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sales.xml"), []byte(validDoc), 0o644))

	t.Run("Disabled without root", func(t *testing.T) {
		rr := do(t, NewHandler(compliance.New()), http.MethodPost, "/validate/file", PathRequest{Path: "sales.xml"})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	h := NewHandler(compliance.New(), WithRoot(root))

	t.Run("File", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate/file", PathRequest{Path: "sales.xml"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Body.String(), `"compliant":true`)
	})

	t.Run("Escape is confined to root", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate/file", PathRequest{Path: "../../sales.xml"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("Missing file", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate/file", PathRequest{Path: "nope.xml"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Directory", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/validate/directory", PathRequest{Path: ".", CrossFile: true})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Body.String(), `"compliant":true`)
	})

	t.Run("Graph", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/graph", PathRequest{Path: "sales.xml"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var report compliance.GraphReport
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		assert.Len(t, report.Nodes, 1)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	h := NewHandler(compliance.New(compliance.WithMetrics(m)), WithMetrics(m.Handler(), m.Middleware))

	do(t, h, http.MethodPost, "/validate", ValidateRequest{Content: validDoc})
	rr := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "csdlc_files_validated_total")
	assert.Contains(t, rr.Body.String(), `path="/validate"`)
}
