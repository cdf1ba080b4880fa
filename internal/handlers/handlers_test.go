package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/digital-blueprint/apiserver/internal/catalog"
	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/services"
	"github.com/digital-blueprint/apiserver/internal/storage"
	"github.com/digital-blueprint/apiserver/internal/store"
	"github.com/digital-blueprint/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const testSecret = "test-secret"

type testAPI struct {
	router  *chi.Mux
	catalog *store.CatalogMemory
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()

	cat, err := catalog.Default(time.Now())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	catalogRepo := store.NewCatalogMemory(cat)
	progressRepo := store.NewProgressMemory()

	catalogService := services.NewCatalogService(catalogRepo)
	progressService := services.NewProgressService(progressRepo, catalogRepo, nil, nil)
	reportService := services.NewReportService(catalogRepo, progressRepo, report.NewRenderer(nil),
		storage.NewStorage(storage.NewMemory("reports")), time.UTC)
	userService := services.NewUserService(store.NewUserMemory())

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/sections", func(r chi.Router) {
		CatalogRouter(r, catalogService)
	})
	router.Route("/users/{userId}/progress", func(r chi.Router) {
		ProgressRouter(r, progressService, reportService, testSecret)
	})
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, testSecret)
	})

	return testAPI{router: router, catalog: catalogRepo}
}

func (api testAPI) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func (api testAPI) section(t *testing.T, slug string) (types.Section, []types.Prompt) {
	t.Helper()
	ctx := context.Background()
	section, err := api.catalog.GetSectionBySlug(ctx, slug)
	if err != nil {
		t.Fatalf("get section: %v", err)
	}
	prompts, err := api.catalog.ListPrompts(ctx, section.ID)
	if err != nil {
		t.Fatalf("list prompts: %v", err)
	}
	return section, prompts
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	expectStatus(t, api.do(t, http.MethodGet, "/healthz", ""), http.StatusOK)
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/sections", "")
	expectStatus(t, rec, http.StatusOK)
	sections := decode[[]types.Section](t, rec)
	if len(sections) != 7 {
		t.Fatalf("expected 7 sections, got %d", len(sections))
	}

	rec = api.do(t, http.MethodGet, "/sections/personal-power", "")
	expectStatus(t, rec, http.StatusOK)
	section := decode[types.Section](t, rec)
	if section.Phase != 1 {
		t.Fatalf("expected phase 1, got %d", section.Phase)
	}

	rec = api.do(t, http.MethodGet, "/sections/no-such-section", "")
	expectStatus(t, rec, http.StatusNotFound)
	if body := decode[ErrorResponse](t, rec); body.Error == "" {
		t.Fatalf("expected readable error message")
	}

	rec = api.do(t, http.MethodGet, "/sections/"+section.ID+"/prompts", "")
	expectStatus(t, rec, http.StatusOK)
	prompts := decode[[]types.Prompt](t, rec)
	if len(prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(prompts))
	}
	for i, p := range prompts {
		if p.Order != i+1 {
			t.Fatalf("expected order %d, got %d", i+1, p.Order)
		}
	}
}

func TestCreateProgressResponses(t *testing.T) {
	api := newTestAPI(t)
	section, prompts := api.section(t, "personal-power")

	body := `{"sectionId":"` + section.ID + `","completedPrompts":1,"responses":{"` + prompts[0].ID + `":"answer"}}`
	rec := api.do(t, http.MethodPost, "/users/u1/progress", body)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[types.Progress](t, rec)
	if created.UserID != "u1" || created.TotalPrompts != 3 || created.CompletedPrompts != 1 {
		t.Fatalf("unexpected progress %+v", created)
	}

	expectStatus(t, api.do(t, http.MethodPost, "/users/u1/progress", body), http.StatusConflict)

	rec = api.do(t, http.MethodPost, "/users/u2/progress", `{"sectionId":"`+section.ID+`","completedPrompts":"two"}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if v := decode[ErrorResponse](t, rec).Violations; len(v) != 1 || v[0].Field != "completedPrompts" {
		t.Fatalf("expected completedPrompts violation, got %+v", v)
	}

	rec = api.do(t, http.MethodPost, "/users/u2/progress", `{"sectionId":"`+section.ID+`","responses":{"`+prompts[2].ID+`":42}}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if v := decode[ErrorResponse](t, rec).Violations; len(v) != 1 || v[0].Field != "responses."+prompts[2].ID {
		t.Fatalf("expected range violation, got %+v", v)
	}

	rec = api.do(t, http.MethodPost, "/users/u2/progress", `{"sectionId":"`+section.ID+`","responses":{"x":null}}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = api.do(t, http.MethodPost, "/users/u2/progress", `{"userId":"u3","sectionId":"`+section.ID+`"}`)
	expectStatus(t, rec, http.StatusBadRequest)

	expectStatus(t, api.do(t, http.MethodPost, "/users/u2/progress", `{"sectionId":"missing"}`), http.StatusNotFound)
	expectStatus(t, api.do(t, http.MethodPost, "/users/u2/progress", `{`), http.StatusBadRequest)

	rec = api.do(t, http.MethodGet, "/users/u2/progress", "")
	expectStatus(t, rec, http.StatusOK)
	if items := decode[[]types.Progress](t, rec); len(items) != 0 {
		t.Fatalf("rejected requests must not write, found %d records", len(items))
	}
}

func TestUpdateProgressResponses(t *testing.T) {
	api := newTestAPI(t)
	section, prompts := api.section(t, "personal-power")
	path := "/users/u1/progress/" + section.ID

	expectStatus(t, api.do(t, http.MethodPatch, path, `{"completedPrompts":1}`), http.StatusNotFound)

	create := `{"sectionId":"` + section.ID + `","responses":{"` + prompts[0].ID + `":"first"}}`
	expectStatus(t, api.do(t, http.MethodPost, "/users/u1/progress", create), http.StatusCreated)

	rec := api.do(t, http.MethodPatch, path+"?responses=merge", `{"responses":{"`+prompts[2].ID+`":7}}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[types.Progress](t, rec); len(got.Responses) != 2 {
		t.Fatalf("expected merged responses, got %v", got.Responses)
	}

	rec = api.do(t, http.MethodPatch, path, `{"responses":{"`+prompts[1].ID+`":"only"}}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[types.Progress](t, rec); len(got.Responses) != 1 {
		t.Fatalf("expected replaced responses, got %v", got.Responses)
	}

	expectStatus(t, api.do(t, http.MethodPatch, path+"?responses=append", `{}`), http.StatusBadRequest)
	expectStatus(t, api.do(t, http.MethodPatch, path, `{"completedPrompts":5}`), http.StatusBadRequest)
}

func TestReportRoutes(t *testing.T) {
	api := newTestAPI(t)
	section, prompts := api.section(t, "execute")
	path := "/users/u1/progress/" + section.ID + "/report"

	expectStatus(t, api.do(t, http.MethodGet, path, ""), http.StatusNotFound)

	create := `{"sectionId":"` + section.ID + `","responses":{"` + prompts[0].ID + `":"ship it"}}`
	expectStatus(t, api.do(t, http.MethodPost, "/users/u1/progress", create), http.StatusCreated)

	rec := api.do(t, http.MethodGet, path, "")
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "execute-blueprint-report.json") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	doc := decode[report.Document](t, rec)
	if doc.Count(report.RoleAnswer) != 1 {
		t.Fatalf("expected one answer block")
	}

	rec = api.do(t, http.MethodGet, path+"?format=html", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "ship it") {
		t.Fatalf("expected html report to contain the answer")
	}

	expectStatus(t, api.do(t, http.MethodGet, path+"?format=docx", ""), http.StatusBadRequest)
	expectStatus(t, api.do(t, http.MethodGet, path+"?format=pdf", ""), http.StatusServiceUnavailable)

	rec = api.do(t, http.MethodPost, path+"/archive?format=html", "")
	expectStatus(t, rec, http.StatusCreated)
	if got := decode[services.ArchivedReport](t, rec); got.Key != "reports/u1/execute-blueprint-report.html" {
		t.Fatalf("unexpected archive key %q", got.Key)
	}
}

func TestAuthAndProgressOwnership(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/register", `{"username":"ada","password":"secret"}`)
	expectStatus(t, rec, http.StatusCreated)
	auth := decode[AuthResponse](t, rec)
	if auth.Token == "" || auth.User.ID == "" {
		t.Fatalf("expected token and user, got %+v", auth)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password hash leaked in response")
	}

	expectStatus(t, api.do(t, http.MethodPost, "/auth/register", `{"username":"ada","password":"x"}`), http.StatusConflict)
	expectStatus(t, api.do(t, http.MethodPost, "/auth/login", `{"username":"ada","password":"nope"}`), http.StatusUnauthorized)

	rec = api.do(t, http.MethodPost, "/auth/login", `{"username":"ada","password":"secret"}`)
	expectStatus(t, rec, http.StatusOK)
	token := decode[AuthResponse](t, rec).Token

	rec = api.do(t, http.MethodGet, "/auth/me", "", "Authorization", "Bearer "+token)
	expectStatus(t, rec, http.StatusOK)
	if me := decode[types.User](t, rec); me.Username != "ada" {
		t.Fatalf("unexpected user %+v", me)
	}
	expectStatus(t, api.do(t, http.MethodGet, "/auth/me", ""), http.StatusUnauthorized)

	own := "/users/" + auth.User.ID + "/progress"
	expectStatus(t, api.do(t, http.MethodGet, own, "", "Authorization", "Bearer "+token), http.StatusOK)
	expectStatus(t, api.do(t, http.MethodGet, "/users/someone-else/progress", "", "Authorization", "Bearer "+token), http.StatusForbidden)
	expectStatus(t, api.do(t, http.MethodGet, own, "", "Authorization", "Bearer garbage"), http.StatusUnauthorized)
	expectStatus(t, api.do(t, http.MethodGet, "/users/anonymous/progress", ""), http.StatusOK)
}
