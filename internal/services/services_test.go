package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/digital-blueprint/apiserver/internal/catalog"
	"github.com/digital-blueprint/apiserver/internal/events"
	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/storage"
	"github.com/digital-blueprint/apiserver/internal/store"
	"github.com/digital-blueprint/apiserver/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	catalog   *store.CatalogMemory
	progress  *store.ProgressMemory
	service   *ProgressService
	publisher *recordingPublisher
	section   types.Section
	prompts   []types.Prompt
}

func newFixture(t *testing.T, slug string) fixture {
	t.Helper()

	cat, err := catalog.Default(time.Now())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	f := fixture{
		catalog:   store.NewCatalogMemory(cat),
		progress:  store.NewProgressMemory(),
		publisher: &recordingPublisher{},
	}
	f.service = NewProgressService(f.progress, f.catalog, nil, f.publisher)

	ctx := context.Background()
	f.section, err = f.catalog.GetSectionBySlug(ctx, slug)
	if err != nil {
		t.Fatalf("get section %s: %v", slug, err)
	}
	f.prompts, err = f.catalog.ListPrompts(ctx, f.section.ID)
	if err != nil {
		t.Fatalf("list prompts: %v", err)
	}
	return f
}

func ptr[T any](v T) *T { return &v }

func violationFields(t *testing.T, err error) map[string]bool {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := make(map[string]bool, len(verr.Violations))
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	return fields
}

func TestCreateProgressDefaults(t *testing.T) {
	f := newFixture(t, "personal-power")
	ctx := context.Background()

	created, err := f.service.Create(ctx, "user-1", ProgressInput{SectionID: &f.section.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TotalPrompts != len(f.prompts) {
		t.Fatalf("expected total %d, got %d", len(f.prompts), created.TotalPrompts)
	}
	if created.CompletedPrompts != 0 || created.IsCompleted {
		t.Fatalf("unexpected defaults %+v", created)
	}
	if created.Responses == nil {
		t.Fatalf("expected empty responses map")
	}
	if got := f.publisher.kinds(); len(got) != 1 || got[0] != events.ProgressUpdated {
		t.Fatalf("expected one progress.updated event, got %v", got)
	}

	_, err = f.service.Create(ctx, "user-1", ProgressInput{SectionID: &f.section.ID})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateProgressRejectsBadPayload(t *testing.T) {
	f := newFixture(t, "personal-power")
	ctx := context.Background()
	textPrompt := f.prompts[0]

	cases := []struct {
		name  string
		user  string
		in    ProgressInput
		field string
	}{
		{name: "missing section", user: "u", in: ProgressInput{}, field: "sectionId"},
		{name: "user mismatch", user: "u", in: ProgressInput{UserID: ptr("other"), SectionID: &f.section.ID}, field: "userId"},
		{name: "negative completed", user: "u", in: ProgressInput{SectionID: &f.section.ID, CompletedPrompts: ptr(-1)}, field: "completedPrompts"},
		{name: "completed above total", user: "u", in: ProgressInput{SectionID: &f.section.ID, CompletedPrompts: ptr(4), TotalPrompts: ptr(3)}, field: "completedPrompts"},
		{name: "unknown prompt", user: "u", in: ProgressInput{SectionID: &f.section.ID, Responses: types.Responses{"nope": types.TextAnswer("x")}}, field: "responses.nope"},
		{name: "wrong answer kind", user: "u", in: ProgressInput{SectionID: &f.section.ID, Responses: types.Responses{textPrompt.ID: types.NumberAnswer(3)}}, field: "responses." + textPrompt.ID},
	}

	for _, tc := range cases {
		_, err := f.service.Create(ctx, tc.user, tc.in)
		if fields := violationFields(t, err); !fields[tc.field] {
			t.Fatalf("%s: expected violation on %s, got %v", tc.name, tc.field, err)
		}
	}

	items, err := f.progress.ListForUser(ctx, "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("rejected payloads must not be written, found %d records", len(items))
	}
}

func TestCreateProgressUnknownSection(t *testing.T) {
	f := newFixture(t, "personal-power")

	_, err := f.service.Create(context.Background(), "u", ProgressInput{SectionID: ptr("missing")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnswerValidationByKind(t *testing.T) {
	cases := []struct {
		kind   types.PromptKind
		ok     types.Answer
		reject []types.Answer
	}{
		{kind: types.PromptTextarea, ok: types.TextAnswer(""), reject: []types.Answer{types.BoolAnswer(true)}},
		{kind: types.PromptRange, ok: types.NumberAnswer(10), reject: []types.Answer{types.NumberAnswer(0), types.NumberAnswer(11), types.NumberAnswer(2.5), types.TextAnswer("5")}},
		{kind: types.PromptCheckbox, ok: types.BoolAnswer(false), reject: []types.Answer{types.TextAnswer("yes")}},
		{kind: types.PromptSelect, ok: types.TextAnswer("a"), reject: []types.Answer{types.TextAnswer("z"), types.NumberAnswer(1)}},
	}

	for _, tc := range cases {
		prompt := types.Prompt{ID: "p", Type: tc.kind, Options: []string{"a", "b"}}
		if msg := checkAnswer(prompt, tc.ok); msg != "" {
			t.Fatalf("%s: expected %v to pass, got %q", tc.kind, tc.ok, msg)
		}
		for _, bad := range tc.reject {
			if msg := checkAnswer(prompt, bad); msg == "" {
				t.Fatalf("%s: expected %v to be rejected", tc.kind, bad)
			}
		}
	}
}

func TestUpdateProgress(t *testing.T) {
	f := newFixture(t, "personal-power")
	ctx := context.Background()
	first, second := f.prompts[0], f.prompts[1]

	created, err := f.service.Create(ctx, "u", ProgressInput{
		SectionID:        &f.section.ID,
		CompletedPrompts: ptr(1),
		Responses:        types.Responses{first.ID: types.TextAnswer("answer")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.service.Update(ctx, "u", f.section.ID, ProgressInput{CompletedPrompts: ptr(2)}, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompletedPrompts != 2 || updated.TotalPrompts != created.TotalPrompts || len(updated.Responses) != 1 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !updated.LastUpdated.After(created.LastUpdated) {
		t.Fatalf("lastUpdated did not advance")
	}

	secondAnswer := types.TextAnswer("more")
	if second.Type == types.PromptRange {
		secondAnswer = types.NumberAnswer(5)
	}
	merged, err := f.service.Update(ctx, "u", f.section.ID, ProgressInput{Responses: types.Responses{second.ID: secondAnswer}}, true)
	if err != nil {
		t.Fatalf("merge update: %v", err)
	}
	if len(merged.Responses) != 2 {
		t.Fatalf("expected merged responses, got %v", merged.Responses)
	}

	_, err = f.service.Update(ctx, "u", f.section.ID, ProgressInput{CompletedPrompts: ptr(9)}, false)
	if fields := violationFields(t, err); !fields["completedPrompts"] {
		t.Fatalf("expected completedPrompts violation, got %v", err)
	}

	_, err = f.service.Update(ctx, "u", f.section.ID, ProgressInput{SectionID: ptr("elsewhere")}, false)
	if fields := violationFields(t, err); !fields["sectionId"] {
		t.Fatalf("expected sectionId violation, got %v", err)
	}
}

func TestUpdateProgressCompletionEvent(t *testing.T) {
	f := newFixture(t, "personal-power")
	ctx := context.Background()

	if _, err := f.service.Create(ctx, "u", ProgressInput{SectionID: &f.section.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.service.Update(ctx, "u", f.section.ID, ProgressInput{IsCompleted: ptr(true)}, false); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	completed := 0
	for _, typ := range f.publisher.kinds() {
		if typ == events.SectionCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected one section.completed event, got %d", completed)
	}
}

func TestUpdateMissingProgress(t *testing.T) {
	f := newFixture(t, "personal-power")
	ctx := context.Background()

	_, err := f.service.Update(ctx, "ghost", f.section.ID, ProgressInput{CompletedPrompts: ptr(1)}, false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.progress.GetForSection(ctx, "ghost", f.section.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update must not create a record")
	}
}

func TestConcurrentCreateKeepsOneRecord(t *testing.T) {
	f := newFixture(t, "audience")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(ctx, "racer", ProgressInput{SectionID: &f.section.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != 15 {
		t.Fatalf("expected 1 success and 15 conflicts, got %d and %d", succeeded, conflicts)
	}
}

func TestReportServiceExportAndArchive(t *testing.T) {
	f := newFixture(t, "big-idea")
	ctx := context.Background()

	first := f.prompts[0]
	if _, err := f.service.Create(ctx, "u", ProgressInput{
		SectionID: &f.section.ID,
		Responses: types.Responses{first.ID: types.TextAnswer("A bold idea")},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	reports := NewReportService(f.catalog, f.progress, report.NewRenderer(nil), nil, nil)
	reports.now = func() time.Time { return time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC) }

	doc, err := reports.Document(ctx, "u", f.section.ID)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Count(report.RoleAnswer) != 1 {
		t.Fatalf("expected one answer block, got %d", doc.Count(report.RoleAnswer))
	}

	if _, err := reports.Document(ctx, "nobody", f.section.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for missing progress, got %v", err)
	}
	if _, err := reports.Archive(ctx, "u", f.section.ID, report.FormatHTML); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected ErrStorageDisabled, got %v", err)
	}

	mem := storage.NewMemory("reports")
	reports = NewReportService(f.catalog, f.progress, report.NewRenderer(nil), storage.NewStorage(mem), nil)
	archived, err := reports.Archive(ctx, "u", f.section.ID, report.FormatHTML)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Key != "reports/u/big-idea-blueprint-report.html" {
		t.Fatalf("unexpected key %q", archived.Key)
	}
	if mem.ContentType(archived.Key) != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", mem.ContentType(archived.Key))
	}
}

func TestReportServicePreview(t *testing.T) {
	f := newFixture(t, "big-idea")
	ctx := context.Background()
	reports := NewReportService(f.catalog, f.progress, report.NewRenderer(nil), nil, nil)

	result, err := reports.Preview(ctx, f.section.ID, types.Responses{
		f.prompts[0].ID: types.TextAnswer("Unsaved answer"),
	}, report.FormatHTML)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(string(result.Data), "Unsaved answer") {
		t.Fatalf("preview is missing the answer")
	}
	if _, err := f.progress.GetForSection(ctx, "u", f.section.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("preview must not store progress, got %v", err)
	}

	_, err = reports.Preview(ctx, f.section.ID, types.Responses{"nope": types.TextAnswer("x")}, report.FormatJSON)
	if fields := violationFields(t, err); !fields["responses.nope"] {
		t.Fatalf("expected responses.nope violation, got %v", fields)
	}
}

func TestUserService(t *testing.T) {
	users := NewUserService(store.NewUserMemory())
	ctx := context.Background()

	user, err := users.Register(ctx, " ada ", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "ada" || user.PasswordHash == "secret" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := users.Register(ctx, "ada", "other"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := users.Register(ctx, "", ""); err == nil {
		t.Fatalf("expected validation error")
	}

	if _, err := users.Authenticate(ctx, "ada", "secret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := users.Authenticate(ctx, "ada", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := users.Authenticate(ctx, "bob", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}
