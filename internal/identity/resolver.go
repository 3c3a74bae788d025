// Package identity establishes the active customer identity and reconciles
// it with the backend profile record. A session either carries a native
// Telegram identity, or falls back to a locally cached profile, or asks the
// user for input and fabricates a guest identity from the phone number.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
)

//go:generate mockgen -source internal/identity/resolver.go -destination=internal/identity/resolver_mock_test.go -package=identity

type Backend interface {
	LookupProfile(ctx context.Context, telegramID int64) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, telegramID int64, name, phone string, language domain.Language) (*domain.Profile, error)
}

type Cache interface {
	Profile() (*domain.Profile, bool)
	SaveProfile(*domain.Profile) error
	ClearProfile() error
}

type Guests interface {
	AssignForPhone(phone string) (int64, error)
}

var (
	// ErrSaveInFlight rejects a re-entrant save while one is outstanding.
	ErrSaveInFlight = errors.New("profile save already in progress")
	// ErrSuperseded marks a result discarded because a newer resolution
	// attempt started while the call was in flight.
	ErrSuperseded = errors.New("resolution attempt superseded")
)

type Phase uint8

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseReady
	PhaseNeedsInput
	PhaseSaving
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseNeedsInput:
		return "needs_input"
	case PhaseSaving:
		return "saving"
	case PhaseError:
		return "error"
	}
	return "uninitialized"
}

// InputReason tells the profile-capture UI why input is needed: an empty
// first-run form, a cached record the backend no longer knows, or a native
// session whose holder has no backend record yet (in which case the UI
// points the user at the bot instead of showing a form).
type InputReason uint8

const (
	ReasonNone InputReason = iota
	ReasonEmptyForm
	ReasonCachedRecordGone
	ReasonNativeNoRecord
)

func (r InputReason) String() string {
	switch r {
	case ReasonEmptyForm:
		return "empty_form"
	case ReasonCachedRecordGone:
		return "cached_record_gone"
	case ReasonNativeNoRecord:
		return "native_no_record"
	}
	return "none"
}

// NativeSession is the identity supplied by the Telegram WebApp host.
type NativeSession struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

func (n NativeSession) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(n.FirstName) + " " + strings.TrimSpace(n.LastName))
}

// Form holds the in-progress profile fields as the user typed them.
type Form struct {
	Name     string          `json:"name"`
	Phone    string          `json:"phone"`
	Language domain.Language `json:"language"`
}

// Status is a point-in-time snapshot of the resolver.
type Status struct {
	Phase   Phase
	Reason  InputReason
	Err     error
	Profile *domain.Profile
	Form    Form
	Dirty   bool
	Native  bool
}

type Config struct {
	MinPhoneDigits  int
	DefaultLanguage domain.Language
}

// Resolver runs the bootstrap and save state machine. All fields are
// guarded by mu; backend calls happen outside the lock and their results
// are applied only if the attempt is still the current generation.
type Resolver struct {
	backend Backend
	cache   Cache
	guests  Guests
	cfg     Config
	logger  *zap.Logger
	metrics observability.Metrics

	mu            sync.Mutex
	generation    uint64
	native        *NativeSession
	phase         Phase
	reason        InputReason
	lastErr       error
	profile       *domain.Profile
	form          Form
	candidateID   int64
	savedSnapshot string
	onReady       func(*domain.Profile)
}

func NewResolver(backend Backend, cache Cache, guests Guests, cfg Config, logger *zap.Logger, metrics observability.Metrics) *Resolver {
	if cfg.MinPhoneDigits <= 0 {
		cfg.MinPhoneDigits = 7
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = domain.LanguageUz
	}
	return &Resolver{
		backend: backend,
		cache:   cache,
		guests:  guests,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// OnReady registers the consumer notified whenever a profile is resolved,
// both from bootstrap adoption and from a successful save.
func (r *Resolver) OnReady(fn func(*domain.Profile)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReady = fn
}

// Bootstrap establishes the active identity. Re-running it (for example on
// a changed native-session signal) supersedes any in-flight attempt: the
// older attempt's backend result is discarded, never applied.
func (r *Resolver) Bootstrap(ctx context.Context, native *NativeSession) Status {
	start := time.Now()

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.native = native
	r.phase = PhaseLoading
	r.reason = ReasonNone
	r.lastErr = nil
	r.mu.Unlock()

	var st Status
	if native != nil {
		st = r.bootstrapNative(ctx, gen, native)
	} else {
		st = r.bootstrapCached(ctx, gen)
	}

	r.metrics.ObserveBootstrap(st.Phase.String(), sinceMs(start))
	return st
}

func (r *Resolver) bootstrapNative(ctx context.Context, gen uint64, native *NativeSession) Status {
	r.mu.Lock()
	if gen != r.generation {
		defer r.mu.Unlock()
		return r.statusLocked()
	}
	r.form = Form{Name: native.DisplayName(), Language: r.cfg.DefaultLanguage}
	if lang, ok := domain.ParseLanguage(native.LanguageCode); ok {
		r.form.Language = lang
	}
	r.candidateID = native.ID
	r.mu.Unlock()

	p, err := r.backend.LookupProfile(ctx, native.ID)

	r.mu.Lock()
	if gen != r.generation {
		defer r.mu.Unlock()
		return r.statusLocked()
	}

	var notify func()
	switch {
	case err == nil:
		notify = r.adoptLocked(p)
	case errors.Is(err, domain.ErrNotFound):
		r.phase = PhaseNeedsInput
		r.reason = ReasonNativeNoRecord
		r.logger.Info("native session has no backend record yet",
			zap.Int64("telegram_id", native.ID),
		)
	default:
		r.phase = PhaseError
		r.lastErr = err
		r.logger.Error("bootstrap profile lookup failed",
			zap.Int64("telegram_id", native.ID),
			zap.Error(err),
		)
	}
	st := r.statusLocked()
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
	return st
}

func (r *Resolver) bootstrapCached(ctx context.Context, gen uint64) Status {
	cached, ok := r.cache.Profile()
	if !ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen == r.generation {
			r.phase = PhaseNeedsInput
			r.reason = ReasonEmptyForm
			r.form = Form{Language: r.cfg.DefaultLanguage}
			r.candidateID = 0
		}
		return r.statusLocked()
	}

	r.mu.Lock()
	if gen != r.generation {
		defer r.mu.Unlock()
		return r.statusLocked()
	}
	r.form = Form{Name: cached.Name, Phone: cached.PhoneNumber, Language: cached.Language}
	r.candidateID = cached.TelegramID
	r.mu.Unlock()

	p, err := r.backend.LookupProfile(ctx, cached.TelegramID)

	r.mu.Lock()
	if gen != r.generation {
		defer r.mu.Unlock()
		return r.statusLocked()
	}

	var notify func()
	switch {
	case err == nil:
		notify = r.adoptLocked(p)
	case errors.Is(err, domain.ErrNotFound):
		// The backend has forgotten this identity; drop the cache but keep
		// the prefilled fields so the user does not retype everything.
		if cerr := r.cache.ClearProfile(); cerr != nil {
			r.logger.Warn("failed to clear stale profile cache", zap.Error(cerr))
		}
		r.candidateID = 0
		r.phase = PhaseNeedsInput
		r.reason = ReasonCachedRecordGone
		r.logger.Info("cached identity unknown to backend, cache cleared",
			zap.Int64("telegram_id", cached.TelegramID),
		)
	default:
		r.phase = PhaseError
		r.lastErr = err
		r.logger.Error("bootstrap revalidation failed",
			zap.Int64("telegram_id", cached.TelegramID),
			zap.Error(err),
		)
	}
	st := r.statusLocked()
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
	return st
}

// UpdateForm replaces the in-progress fields. Editing any field away from
// the last saved tuple marks the profile dirty until the next save lands.
func (r *Resolver) UpdateForm(f Form) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.form = f
}

// Save normalizes and validates the form locally, resolves the identity to
// persist under (native id wins over any guest allocation), and upserts the
// profile. A failed save keeps the edits and the prior state intact.
func (r *Resolver) Save(ctx context.Context) (*domain.Profile, error) {
	start := time.Now()

	r.mu.Lock()
	if r.phase == PhaseSaving {
		r.mu.Unlock()
		return nil, ErrSaveInFlight
	}

	name := strings.TrimSpace(r.form.Name)
	phone := domain.NormalizePhone(r.form.Phone)
	lang := r.form.Language
	if lang == "" {
		lang = r.cfg.DefaultLanguage
	}
	if name == "" {
		r.mu.Unlock()
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(phone) < r.cfg.MinPhoneDigits {
		r.mu.Unlock()
		return nil, &domain.ValidationError{
			Field:  "phone_number",
			Reason: fmt.Sprintf("needs at least %d digits", r.cfg.MinPhoneDigits),
		}
	}

	prevPhase, prevReason := r.phase, r.reason
	r.phase = PhaseSaving
	gen := r.generation
	native := r.native
	r.mu.Unlock()

	var telegramID int64
	if native != nil {
		telegramID = native.ID
	} else {
		id, err := r.guests.AssignForPhone(phone)
		if err != nil {
			r.restore(gen, prevPhase, prevReason)
			r.metrics.ObserveProfileSave(sinceMs(start), false)
			return nil, fmt.Errorf("allocate guest identity: %w", err)
		}
		telegramID = id
	}

	p, err := r.backend.UpsertProfile(ctx, telegramID, name, phone, lang)

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		r.metrics.ObserveProfileSave(sinceMs(start), false)
		return nil, ErrSuperseded
	}
	if err != nil {
		r.phase = prevPhase
		r.reason = prevReason
		r.mu.Unlock()
		r.logger.Error("profile upsert failed",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err),
		)
		r.metrics.ObserveProfileSave(sinceMs(start), false)
		return nil, fmt.Errorf("save profile: %w", err)
	}

	notify := r.adoptLocked(p)
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
	r.metrics.ObserveProfileSave(sinceMs(start), true)
	return p, nil
}

// Current returns the resolved profile when one exists. Checkout uses this
// as its precondition.
func (r *Resolver) Current() (*domain.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profile == nil || (r.phase != PhaseReady && r.phase != PhaseSaving) {
		return nil, false
	}
	p := *r.profile
	return &p, true
}

func (r *Resolver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// adoptLocked takes a backend profile verbatim: form, snapshot, and local
// cache are all overwritten. Returns the consumer notification to run once
// the lock is released.
func (r *Resolver) adoptLocked(p *domain.Profile) func() {
	r.profile = p
	r.form = Form{Name: p.Name, Phone: p.PhoneNumber, Language: p.Language}
	r.candidateID = p.TelegramID
	r.savedSnapshot = snapshotOf(p.TelegramID, p.Name, p.PhoneNumber, p.Language)
	r.phase = PhaseReady
	r.reason = ReasonNone
	r.lastErr = nil

	if err := r.cache.SaveProfile(p); err != nil {
		r.logger.Warn("failed to persist profile cache", zap.Error(err))
	}
	r.logger.Info("profile resolved",
		zap.Int64("telegram_id", p.TelegramID),
		zap.Int64("record_id", p.ID),
	)

	if r.onReady == nil {
		return nil
	}
	fn := r.onReady
	prof := *p
	return func() { fn(&prof) }
}

func (r *Resolver) restore(gen uint64, phase Phase, reason InputReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return
	}
	r.phase = phase
	r.reason = reason
}

func (r *Resolver) statusLocked() Status {
	st := Status{
		Phase:  r.phase,
		Reason: r.reason,
		Err:    r.lastErr,
		Form:   r.form,
		Native: r.native != nil,
	}
	if r.profile != nil {
		p := *r.profile
		st.Profile = &p
	}

	name := strings.TrimSpace(r.form.Name)
	phone := domain.NormalizePhone(r.form.Phone)
	lang := r.form.Language
	if lang == "" {
		lang = r.cfg.DefaultLanguage
	}
	st.Dirty = r.savedSnapshot == "" ||
		snapshotOf(r.identityLocked(), name, phone, lang) != r.savedSnapshot
	return st
}

func (r *Resolver) identityLocked() int64 {
	if r.native != nil {
		return r.native.ID
	}
	return r.candidateID
}

func snapshotOf(telegramID int64, name, phone string, lang domain.Language) string {
	return fmt.Sprintf("%d|%s|%s|%s", telegramID, name, phone, lang)
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
