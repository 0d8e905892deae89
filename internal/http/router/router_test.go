package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mailroom/internal/dispatch"
	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/http/controllers"
	"github.com/dropDatabas3/mailroom/internal/http/router"
	"github.com/dropDatabas3/mailroom/internal/mailer"
	"github.com/dropDatabas3/mailroom/internal/render"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
	"github.com/dropDatabas3/mailroom/internal/resolver"
	"github.com/dropDatabas3/mailroom/internal/store/memory"
	"github.com/dropDatabas3/mailroom/internal/templates"
)

const adminKey = "test-admin-key"

type captureSender struct {
	sent atomic.Int64
}

func (s *captureSender) Send(ctx context.Context, msg *mailer.Message) (string, error) {
	n := s.sent.Add(1)
	return fmt.Sprintf("<msg-%d@test>", n), nil
}

type staticProvider struct{ sender mailer.Sender }

func (p *staticProvider) GetSender(ctx context.Context, tenant string) (mailer.Sender, error) {
	return p.sender, nil
}

func newServer(t *testing.T) (*httptest.Server, *captureSender) {
	t.Helper()

	templateRepo := memory.NewTemplateRepository()
	logRepo := memory.NewDispatchLogRepository()
	tenantRepo := memory.NewTenantRepository()
	tenantRepo.Put(&repository.Tenant{ID: "tenant-1", Slug: "acme", Name: "Acme"})

	cache := rendercache.NewMemory(0)
	engine := render.New(render.Config{Cache: cache})
	res := resolver.New(templateRepo, tenantRepo)
	svc := templates.New(templates.Config{Repo: templateRepo, Cache: cache, MaxActive: 50})

	sender := &captureSender{}
	pipeline := dispatch.New(dispatch.Config{
		Resolver: res,
		Engine:   engine,
		Senders:  &staticProvider{sender: sender},
		Logs:     logRepo,
	})

	handler := router.New(router.Deps{
		Dispatch:    &controllers.DispatchController{Pipeline: pipeline},
		Render:      &controllers.RenderController{Resolver: res, Engine: engine},
		Templates:   &controllers.TemplatesController{Service: svc, Resolver: res},
		Admin:       &controllers.AdminController{Cache: cache},
		AdminAPIKey: adminKey,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, sender
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRouter_TemplateLifecycleAndDispatch(t *testing.T) {
	srv, sender := newServer(t)

	// 1) Crear template
	resp := postJSON(t, srv.URL+"/v1/tenants/acme/templates", map[string]any{
		"slug":    "welcome",
		"name":    "Welcome",
		"subject": "Hola {{name}}",
		"body":    "<p>Bienvenido {{name}}</p>",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
	}
	decode(t, resp, &created)
	require.Equal(t, 1, created.Version)
	require.NotEmpty(t, created.ID)

	// 2) Slug duplicado rechazado
	resp = postJSON(t, srv.URL+"/v1/tenants/acme/templates", map[string]any{
		"slug":    "welcome",
		"subject": "x",
		"body":    "y",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// 3) Render dry-run: primero miss, despues hit
	for i, wantHit := range []bool{false, true} {
		resp = postJSON(t, srv.URL+"/v1/tenants/acme/render", map[string]any{
			"template": "welcome",
			"data":     map[string]any{"name": "Ana"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Subject  string `json:"subject"`
			HTML     string `json:"html"`
			Text     string `json:"text"`
			CacheHit bool   `json:"cache_hit"`
		}
		decode(t, resp, &out)
		require.Equal(t, "Hola Ana", out.Subject)
		require.Contains(t, out.HTML, "Bienvenido Ana")
		require.Contains(t, out.Text, "Bienvenido Ana")
		require.Equal(t, wantHit, out.CacheHit, "render #%d", i+1)
	}

	// 4) Dispatch en modo template
	resp = postJSON(t, srv.URL+"/v1/tenants/acme/dispatch", map[string]any{
		"to":       []string{"ana@example.com"},
		"template": "welcome",
		"data":     map[string]any{"name": "Ana"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var receipt struct {
		MessageID string `json:"message_id"`
		LogID     string `json:"log_id"`
		Mode      string `json:"mode"`
	}
	decode(t, resp, &receipt)
	require.NotEmpty(t, receipt.MessageID)
	require.NotEmpty(t, receipt.LogID)
	require.Equal(t, "template", receipt.Mode)
	require.Equal(t, int64(1), sender.sent.Load())

	// 5) Editar contenido crea version 2; la v1 queda pineable
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/v1/tenants/acme/templates/welcome",
		bytes.NewReader([]byte(`{"subject":"Hola de nuevo {{name}}"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var edited struct {
		Version int `json:"version"`
	}
	decode(t, resp, &edited)
	require.Equal(t, 2, edited.Version)

	resp, err = http.Get(srv.URL + "/v1/tenants/acme/templates/welcome?version=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pinned struct {
		Version int    `json:"version"`
		Subject string `json:"subject"`
	}
	decode(t, resp, &pinned)
	require.Equal(t, 1, pinned.Version)
	require.Equal(t, "Hola {{name}}", pinned.Subject)

	// 6) Soft delete: desaparece del dispatch, el historial queda
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/v1/tenants/acme/templates/welcome", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/tenants/acme/dispatch", map[string]any{
		"to":       []string{"ana@example.com"},
		"template": "welcome",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/tenants/acme/templates/welcome/versions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hist struct {
		Versions []struct {
			Version int  `json:"version"`
			Active  bool `json:"active"`
		} `json:"versions"`
	}
	decode(t, resp, &hist)
	require.Len(t, hist.Versions, 2)
	require.False(t, hist.Versions[0].Active)
}

func TestRouter_LegacyDispatchAndValidation(t *testing.T) {
	srv, sender := newServer(t)

	// contenido crudo sin template => modo legacy
	resp := postJSON(t, srv.URL+"/v1/tenants/acme/dispatch", map[string]any{
		"to":      []string{"bob@example.com"},
		"subject": "Hola {{name}}",
		"html":    "<p>Hola {{name}}</p>",
		"data":    map[string]any{"name": "Bob"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var receipt struct {
		Mode string `json:"mode"`
	}
	decode(t, resp, &receipt)
	require.Equal(t, "legacy", receipt.Mode)
	require.Equal(t, int64(1), sender.sent.Load())

	// sin destinatarios => 400
	resp = postJSON(t, srv.URL+"/v1/tenants/acme/dispatch", map[string]any{
		"subject": "x", "html": "y",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// tenant inexistente => 404
	resp = postJSON(t, srv.URL+"/v1/tenants/ghost/dispatch", map[string]any{
		"to": []string{"a@b.com"}, "subject": "x", "html": "y",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_AdminRequiresKey(t *testing.T) {
	srv, _ := newServer(t)

	// sin key => 401
	resp, err := http.Post(srv.URL+"/v1/admin/cache/clear", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// con key => 200
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/admin/cache/clear", nil)
	req.Header.Set("X-Admin-API-Key", adminKey)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Cleared bool `json:"cleared"`
	}
	decode(t, resp, &out)
	require.True(t, out.Cleared)
}

func TestRouter_Healthz(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Status string `json:"status"`
	}
	decode(t, resp, &out)
	require.Equal(t, "ok", out.Status)
}
