package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

type configurationStore interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	UpsertAll(ctx context.Context, cfgs []models.Configuration) error
}

// WindowService answers whether an enrollment window is open. Values stored in the configuration
// table override the process configuration; a window with neither bound is closed.
type WindowService struct {
	store    configurationStore
	fallback config.WindowsConfig
	logger   *zap.Logger
}

// NewWindowService constructs WindowService.
func NewWindowService(store configurationStore, fallback config.WindowsConfig, logger *zap.Logger) *WindowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowService{store: store, fallback: fallback, logger: logger}
}

// IsOpen reports whether now falls inside the window of kind.
func (s *WindowService) IsOpen(ctx context.Context, kind models.WindowKind, now time.Time) (bool, error) {
	window, err := s.Resolve(ctx, kind)
	if err != nil {
		return false, err
	}
	return window.Contains(now), nil
}

// Resolve returns the effective bounds of the window. Once any bound of the kind is stored, the
// window is built from the stored rows alone and an empty value leaves that side unbounded; the
// process configuration applies only when nothing is stored. A malformed stored value falls back to
// the configured bound for that side.
func (s *WindowService) Resolve(ctx context.Context, kind models.WindowKind) (config.Window, error) {
	fallback := s.fallbackFor(kind)
	if s.store == nil {
		return fallback, nil
	}
	rows, err := s.store.ListByKeys(ctx, []string{kind.OpensAtKey(), kind.ClosesAtKey()})
	if err != nil {
		return config.Window{}, appErrors.Internal(err, "failed to load enrollment window")
	}
	if len(rows) == 0 {
		return fallback, nil
	}
	var window config.Window
	for _, row := range rows {
		var bound, configured **time.Time
		switch row.Key {
		case kind.OpensAtKey():
			bound, configured = &window.OpensAt, &fallback.OpensAt
		case kind.ClosesAtKey():
			bound, configured = &window.ClosesAt, &fallback.ClosesAt
		default:
			continue
		}
		value := strings.TrimSpace(row.Value)
		if value == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			s.logger.Warn("ignoring malformed window bound", zap.String("key", row.Key), zap.String("value", row.Value))
			*bound = *configured
			continue
		}
		ts = ts.UTC()
		*bound = &ts
	}
	return window, nil
}

// SetWindow persists both bounds of a window. A nil bound is stored empty, leaving that side open;
// storing neither bound closes the window regardless of the process configuration.
func (s *WindowService) SetWindow(ctx context.Context, actor *models.Principal, kind models.WindowKind, opensAt, closesAt *time.Time) error {
	if err := authorize(actor, models.CapManageWindows, ""); err != nil {
		return err
	}
	if !kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown window")
	}
	if opensAt != nil && closesAt != nil && closesAt.Before(*opensAt) {
		return appErrors.Clone(appErrors.ErrValidation, "window closes before it opens")
	}
	var by *string
	if actor.UserID != "" {
		by = &actor.UserID
	}
	entries := make([]models.Configuration, 0, 2)
	for _, b := range []struct {
		key   string
		bound *time.Time
	}{{kind.OpensAtKey(), opensAt}, {kind.ClosesAtKey(), closesAt}} {
		value := ""
		if b.bound != nil {
			value = b.bound.UTC().Format(time.RFC3339)
		}
		entries = append(entries, models.Configuration{Key: b.key, Value: value, UpdatedBy: by})
	}
	if err := s.store.UpsertAll(ctx, entries); err != nil {
		return appErrors.Internal(err, "failed to store enrollment window")
	}
	s.logger.Info("enrollment window updated",
		zap.String("kind", string(kind)),
		zap.String("actor_id", actor.UserID),
		zap.Stringp("opens_at", entryValue(entries[0])),
		zap.Stringp("closes_at", entryValue(entries[1])),
	)
	return nil
}

func (s *WindowService) fallbackFor(kind models.WindowKind) config.Window {
	if kind == models.WindowExamSignup {
		return s.fallback.ExamSignup
	}
	return s.fallback.SubjectEnrollment
}

func entryValue(cfg models.Configuration) *string {
	if cfg.Value == "" {
		return nil
	}
	return &cfg.Value
}
