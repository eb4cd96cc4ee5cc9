package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ApplyFunc receives the dark flag whenever the theme is restored or
// changed, generalizing the original's "set an attribute on the document
// root" side effect to whatever presentation layer is attached.
type ApplyFunc func(dark bool)

type themeSnapshot struct {
	Dark bool `json:"dark"`
}

// Theme is the persisted dark-mode flag. On first run the default comes
// from the OS preference; thereafter the persisted value wins and is
// re-applied on restore.
type Theme struct {
	mu     sync.Mutex
	dark   bool
	p      Persister
	apply  ApplyFunc
	logger *slog.Logger
}

// NewTheme restores the theme from p, falling back to DetectDark on first
// run, and applies it. apply may be nil.
func NewTheme(ctx context.Context, p Persister, apply ApplyFunc, logger *slog.Logger) *Theme {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Theme{
		p:      p,
		apply:  apply,
		logger: logger,
	}

	t.dark = DetectDark()
	data, err := p.Load(ctx, RecordTheme)
	if err != nil {
		logger.Warn("restoring theme failed", "error", err)
	} else if data != nil {
		var snap themeSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			logger.Warn("discarding corrupt theme record", "error", err)
		} else {
			t.dark = snap.Dark
		}
	}

	if t.apply != nil {
		t.apply(t.dark)
	}
	return t
}

func (t *Theme) save(ctx context.Context) error {
	data, err := json.Marshal(themeSnapshot{Dark: t.dark})
	if err != nil {
		return fmt.Errorf("encoding theme: %w", err)
	}
	if err := t.p.Save(ctx, RecordTheme, data); err != nil {
		return fmt.Errorf("persisting theme: %w", err)
	}
	return nil
}

// Dark returns the current dark-mode flag.
func (t *Theme) Dark() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dark
}

// Toggle flips the flag, applies it and persists it.
func (t *Theme) Toggle(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setLocked(ctx, !t.dark)
}

// Set applies and persists the given flag.
func (t *Theme) Set(ctx context.Context, dark bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setLocked(ctx, dark)
}

func (t *Theme) setLocked(ctx context.Context, dark bool) error {
	t.dark = dark
	if t.apply != nil {
		t.apply(dark)
	}
	return t.save(ctx)
}

// DetectDark guesses the OS/terminal preference. COLORFGBG is the only
// widely set hint: its last field is the background color number, and
// 0–6 or 8 mean a dark background.
func DetectDark() bool {
	fgbg := os.Getenv("COLORFGBG")
	if fgbg == "" {
		return false
	}
	parts := strings.Split(fgbg, ";")
	bg := parts[len(parts)-1]
	switch bg {
	case "0", "1", "2", "3", "4", "5", "6", "8":
		return true
	}
	return false
}
