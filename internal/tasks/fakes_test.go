package tasks

import (
	"context"
	"io"
	"sync"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/services"
)

// fakeBackend records calls in order; every method succeeds unless its error field is set.
// ConsumeCredit debits me like the server would.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	me          models.Entitlement
	meErr       error
	consumeErr  error
	generateErr error
	videoURL    string
	uploadErrs  map[string]error // by filename

	generated   []services.GenerateRequest
	uploaded    map[string]string // filename -> content
	inflight    int
	maxInflight int
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) GetMe(ctx context.Context) (models.Entitlement, error) {
	f.record("me")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.me, f.meErr
}

func (f *fakeBackend) ConsumeCredit(ctx context.Context) error {
	f.record("consume")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return f.consumeErr
	}
	if f.me.Plan == models.PlanFree && f.me.Credits > 0 {
		f.me.Credits--
	}
	return nil
}

func (f *fakeBackend) GenerateVideo(ctx context.Context, req services.GenerateRequest) (string, error) {
	f.record("generate")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, req)
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.videoURL, nil
}

func (f *fakeBackend) UploadMedia(ctx context.Context, kind models.MediaKind, filename string, content io.Reader) (string, error) {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	err := f.uploadErrs[filename]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[filename] = string(data)
	return "uploads/" + string(kind) + "/" + filename, nil
}

func (f *fakeBackend) UploadLyrics(ctx context.Context, filename string, content io.Reader) (*services.LyricsResult, error) {
	return &services.LyricsResult{}, nil
}

func (f *fakeBackend) ProcessLyrics(ctx context.Context, text string) (*services.LyricsResult, error) {
	return &services.LyricsResult{}, nil
}

func (f *fakeBackend) CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (string, error) {
	return "", nil
}

// fakeAccount mimics the composed context: optimistic decrements on free plans, refresh replaces the
// entitlement with the backend's answer.
type fakeAccount struct {
	mu            sync.Mutex
	authenticated bool
	entitlement   models.Entitlement
	backend       *fakeBackend
	refreshes     int
	invalidations int
	log           []string
}

func (a *fakeAccount) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

func (a *fakeAccount) Entitlement() models.Entitlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entitlement
}

func (a *fakeAccount) ConsumeCreditOptimistic() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = append(a.log, "optimistic")
	if a.entitlement.Plan != models.PlanFree || a.entitlement.Credits <= 0 {
		return false
	}
	a.entitlement.Credits--
	return true
}

func (a *fakeAccount) RefreshEntitlement(ctx context.Context) models.Entitlement {
	e, err := a.backend.GetMe(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshes++
	a.log = append(a.log, "refresh")
	if err != nil || !a.authenticated {
		e = models.DefaultEntitlement()
	}
	a.entitlement = e
	return e
}

func (a *fakeAccount) Invalidate(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.invalidations++
	a.authenticated = false
	a.entitlement = models.DefaultEntitlement()
}

func exportableProject() *models.Project {
	p := models.NewProject(1, "user-1", "My Song")
	p.Media.Set(models.MediaOriginalAudio, "uploads/song.mp3")
	p.Stanzas = models.NewStanzas([]string{"first verse", "chorus"})
	p.Stanzas[0].EndTime = "00:12"
	p.Stanzas[1].StartTime = "00:12"
	p.Stanzas[1].EndTime = "00:30"
	return p
}
