package links

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Hand-written mocks ---

type mockLinkRepo struct {
	insertFn             func(ctx context.Context, link *Link) (*Link, error)
	createOrReactivateFn func(ctx context.Context, link *Link) (*Link, CreateStatus, error)
	findActiveFn         func(ctx context.Context, code string) (*Link, error)
	listActiveFn         func(ctx context.Context) ([]Link, error)
	softDeleteFn         func(ctx context.Context, code string, at time.Time) error
	existingCodesFn      func(ctx context.Context, codes []string) (map[string]struct{}, error)
}

func (m *mockLinkRepo) Insert(ctx context.Context, link *Link) (*Link, error) {
	return m.insertFn(ctx, link)
}
func (m *mockLinkRepo) CreateOrReactivate(ctx context.Context, link *Link) (*Link, CreateStatus, error) {
	return m.createOrReactivateFn(ctx, link)
}
func (m *mockLinkRepo) FindActive(ctx context.Context, code string) (*Link, error) {
	return m.findActiveFn(ctx, code)
}
func (m *mockLinkRepo) ListActive(ctx context.Context) ([]Link, error) {
	return m.listActiveFn(ctx)
}
func (m *mockLinkRepo) SoftDelete(ctx context.Context, code string, at time.Time) error {
	return m.softDeleteFn(ctx, code, at)
}
func (m *mockLinkRepo) ExistingCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	return m.existingCodesFn(ctx, codes)
}

type mockLedger struct {
	resolveFn func(ctx context.Context, code string, click ClickInput, at time.Time) (string, error)
}

func (m *mockLedger) ResolveAndRecord(ctx context.Context, code string, click ClickInput, at time.Time) (string, error) {
	return m.resolveFn(ctx, code, click, at)
}

type mockGenerator struct {
	codes []string
	idx   int
	batch []string
}

func (m *mockGenerator) Generate(int) (string, error) {
	if m.idx >= len(m.codes) {
		return "", errors.New("no more codes")
	}
	c := m.codes[m.idx]
	m.idx++
	return c, nil
}

func (m *mockGenerator) GenerateBatch(count, _ int) ([]string, error) {
	if count > len(m.batch) {
		count = len(m.batch)
	}
	return m.batch[:count], nil
}

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(lr *mockLinkRepo, ledger *mockLedger, gen *mockGenerator) *Service {
	svc := NewService(lr, ledger, gen, 6)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func echoInsert(_ context.Context, link *Link) (*Link, error) {
	out := *link
	return &out, nil
}

// --- CreateLink ---

func TestCreateLink_GeneratedCode(t *testing.T) {
	lr := &mockLinkRepo{insertFn: echoInsert}
	svc := newTestService(lr, &mockLedger{}, &mockGenerator{codes: []string{"abc123"}})

	res, err := svc.CreateLink(context.Background(), CreateLinkInput{TargetURL: "  https://example.com  "})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCreated {
		t.Errorf("got status %q, want %q", res.Status, StatusCreated)
	}
	if res.Link.Code != "abc123" {
		t.Errorf("got code %q, want %q", res.Link.Code, "abc123")
	}
	if res.Link.TargetURL != "https://example.com" {
		t.Errorf("got URL %q, want trimmed URL", res.Link.TargetURL)
	}
	if !res.Link.CreatedAt.Equal(fixedNow) {
		t.Errorf("got created_at %v, want %v", res.Link.CreatedAt, fixedNow)
	}
}

func TestCreateLink_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateLinkInput
		wantErr error
	}{
		{"not a url", CreateLinkInput{TargetURL: "not-a-url"}, ErrInvalidURL},
		{"ftp scheme", CreateLinkInput{TargetURL: "ftp://example.com"}, ErrInvalidURL},
		{"code too short", CreateLinkInput{TargetURL: "https://example.com", Code: "abc"}, ErrInvalidCode},
		{"code with symbol", CreateLinkInput{TargetURL: "https://example.com", Code: "abc_12"}, ErrInvalidCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockLinkRepo{}, &mockLedger{}, &mockGenerator{})
			_, err := svc.CreateLink(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateLink_GeneratedCollisionRetries(t *testing.T) {
	attempts := 0
	lr := &mockLinkRepo{
		insertFn: func(ctx context.Context, link *Link) (*Link, error) {
			attempts++
			if attempts <= 2 {
				return nil, ErrCodeConflict
			}
			return echoInsert(ctx, link)
		},
	}
	gen := &mockGenerator{codes: []string{"aaaaaa", "bbbbbb", "cccccc"}}
	svc := newTestService(lr, &mockLedger{}, gen)

	res, err := svc.CreateLink(context.Background(), CreateLinkInput{TargetURL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Link.Code != "cccccc" {
		t.Errorf("got code %q, want %q", res.Link.Code, "cccccc")
	}
	if attempts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", attempts)
	}
}

func TestCreateLink_AllRetriesExhausted(t *testing.T) {
	lr := &mockLinkRepo{
		insertFn: func(context.Context, *Link) (*Link, error) { return nil, ErrCodeConflict },
	}
	codes := make([]string, maxGenerateAttempts)
	for i := range codes {
		codes[i] = "dupdup"
	}
	svc := newTestService(lr, &mockLedger{}, &mockGenerator{codes: codes})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{TargetURL: "https://example.com"})
	if !errors.Is(err, ErrCodeConflict) {
		t.Fatalf("expected ErrCodeConflict after exhausting retries, got: %v", err)
	}
}

func TestCreateLink_GeneratedDoesNotRetryOtherErrors(t *testing.T) {
	attempts := 0
	lr := &mockLinkRepo{
		insertFn: func(context.Context, *Link) (*Link, error) {
			attempts++
			return nil, ErrStorageUnavailable
		},
	}
	svc := newTestService(lr, &mockLedger{}, &mockGenerator{codes: []string{"aaaaaa", "bbbbbb"}})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{TargetURL: "https://example.com"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestCreateLink_CustomCode(t *testing.T) {
	tests := []struct {
		name       string
		status     CreateStatus
		err        error
		wantStatus CreateStatus
		wantErr    error
	}{
		{"created", StatusCreated, nil, StatusCreated, nil},
		{"reactivated", StatusReactivated, nil, StatusReactivated, nil},
		{"conflict", "", ErrCodeConflict, "", ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCode, gotOwner string
			lr := &mockLinkRepo{
				createOrReactivateFn: func(_ context.Context, link *Link) (*Link, CreateStatus, error) {
					gotCode, gotOwner = link.Code, link.OwnerID
					if tt.err != nil {
						return nil, "", tt.err
					}
					out := *link
					return &out, tt.status, nil
				},
			}
			svc := newTestService(lr, &mockLedger{}, &mockGenerator{})

			res, err := svc.CreateLink(context.Background(), CreateLinkInput{
				TargetURL: "https://example.com",
				Code:      "MyCode1",
				OwnerID:   " owner-1 ",
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got: %v", tt.wantErr, err)
			}
			if gotCode != "MyCode1" || gotOwner != "owner-1" {
				t.Errorf("repo got code=%q owner=%q", gotCode, gotOwner)
			}
			if tt.wantErr == nil && res.Status != tt.wantStatus {
				t.Errorf("got status %q, want %q", res.Status, tt.wantStatus)
			}
		})
	}
}

// --- GetLink / DeleteLink ---

func TestGetLink_InvalidCodeSkipsRepo(t *testing.T) {
	svc := newTestService(&mockLinkRepo{}, &mockLedger{}, &mockGenerator{})

	for _, code := range []string{"", "abc", "bad code!"} {
		if _, err := svc.GetLink(context.Background(), code); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetLink(%q): expected ErrNotFound, got: %v", code, err)
		}
	}
}

func TestGetLink_DelegatesToRepo(t *testing.T) {
	want := &Link{Code: "abc123", TargetURL: "https://example.com", IsActive: true}
	lr := &mockLinkRepo{
		findActiveFn: func(_ context.Context, code string) (*Link, error) {
			if code == "abc123" {
				return want, nil
			}
			return nil, ErrNotFound
		},
	}
	svc := newTestService(lr, &mockLedger{}, &mockGenerator{})

	got, err := svc.GetLink(context.Background(), "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if _, err := svc.GetLink(context.Background(), "zzz999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteLink(t *testing.T) {
	t.Run("passes clock to repo", func(t *testing.T) {
		var gotAt time.Time
		lr := &mockLinkRepo{
			softDeleteFn: func(_ context.Context, _ string, at time.Time) error {
				gotAt = at
				return nil
			},
		}
		svc := newTestService(lr, &mockLedger{}, &mockGenerator{})

		if err := svc.DeleteLink(context.Background(), "abc123"); err != nil {
			t.Fatal(err)
		}
		if !gotAt.Equal(fixedNow) {
			t.Errorf("got deleted_at %v, want %v", gotAt, fixedNow)
		}
	})

	t.Run("not found propagates", func(t *testing.T) {
		lr := &mockLinkRepo{
			softDeleteFn: func(context.Context, string, time.Time) error { return ErrNotFound },
		}
		svc := newTestService(lr, &mockLedger{}, &mockGenerator{})

		if err := svc.DeleteLink(context.Background(), "abc123"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("empty code", func(t *testing.T) {
		svc := newTestService(&mockLinkRepo{}, &mockLedger{}, &mockGenerator{})

		if err := svc.DeleteLink(context.Background(), ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}

// --- Resolve ---

func TestResolve_InvalidCodeSkipsLedger(t *testing.T) {
	called := false
	ledger := &mockLedger{
		resolveFn: func(context.Context, string, ClickInput, time.Time) (string, error) {
			called = true
			return "", nil
		},
	}
	svc := newTestService(&mockLinkRepo{}, ledger, &mockGenerator{})

	_, err := svc.Resolve(context.Background(), "favicon.ico", ClickInput{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if called {
		t.Error("ledger should not be called for malformed codes")
	}
}

func TestResolve_DelegatesToLedger(t *testing.T) {
	var gotClick ClickInput
	ledger := &mockLedger{
		resolveFn: func(_ context.Context, code string, click ClickInput, at time.Time) (string, error) {
			gotClick = click
			if !at.Equal(fixedNow) {
				t.Errorf("got at %v, want %v", at, fixedNow)
			}
			return "https://example.com/" + code, nil
		},
	}
	svc := newTestService(&mockLinkRepo{}, ledger, &mockGenerator{})

	click := ClickInput{Referrer: "https://news.ycombinator.com", UserAgent: "curl/8.0", IPAddress: "10.0.0.1"}
	got, err := svc.Resolve(context.Background(), "xyz789", click)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/xyz789" {
		t.Errorf("got %q", got)
	}
	if gotClick != click {
		t.Errorf("got click %+v, want %+v", gotClick, click)
	}
}

// --- SuggestCodes ---

func TestSuggestCodes_FiltersTaken(t *testing.T) {
	lr := &mockLinkRepo{
		existingCodesFn: func(_ context.Context, codes []string) (map[string]struct{}, error) {
			if len(codes) != 3 {
				t.Errorf("got %d candidates, want 3", len(codes))
			}
			return map[string]struct{}{"bbbbbb": {}}, nil
		},
	}
	gen := &mockGenerator{batch: []string{"aaaaaa", "bbbbbb", "cccccc"}}
	svc := newTestService(lr, &mockLedger{}, gen)

	got, err := svc.SuggestCodes(context.Background(), 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "aaaaaa" || got[1] != "cccccc" {
		t.Errorf("got %v", got)
	}
}

func TestSuggestCodes_StorageError(t *testing.T) {
	lr := &mockLinkRepo{
		existingCodesFn: func(context.Context, []string) (map[string]struct{}, error) {
			return nil, ErrStorageUnavailable
		},
	}
	svc := newTestService(lr, &mockLedger{}, &mockGenerator{batch: []string{"aaaaaa"}})

	if _, err := svc.SuggestCodes(context.Background(), 1, 6); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got: %v", err)
	}
}
