// Package svcctx provides service context for dependency injection via context.
// One Services instance is constructed per run and torn down after the
// final persist.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/config"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/home"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/learning"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/ocr"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
	"github.com/Huser-Networks/admin-assistant-ocr/internal/rules"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Home     *home.Dir
	Config   *config.Manager
	Rules    *rules.Store
	Profiles *profile.Store
	Learning *learning.Store
	Engine   ocr.Engine
	Logger   *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// RulesFrom extracts the extraction rules store from context.
func RulesFrom(ctx context.Context) *rules.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Rules
	}
	return nil
}

// ProfilesFrom extracts the hierarchical profile store from context.
func ProfilesFrom(ctx context.Context) *profile.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Profiles
	}
	return nil
}

// LearningFrom extracts the learning store from context.
func LearningFrom(ctx context.Context) *learning.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Learning
	}
	return nil
}

// EngineFrom extracts the OCR engine from context.
func EngineFrom(ctx context.Context) ocr.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
