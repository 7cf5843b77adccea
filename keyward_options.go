package keyward

import (
	"io"
	"log/slog"
	"os"

	phuslog "github.com/phuslu/log"

	"github.com/keyward/keyward/cache"
	"github.com/keyward/keyward/events"
	"github.com/keyward/keyward/oauth2"
	"github.com/keyward/keyward/router/httprouter"
	"github.com/keyward/keyward/router/servemux"
)

type Option func(*initializer)

func WithRouterServeMux() Option {
	return func(i *initializer) {
		i.router = servemux.New()
	}
}

func WithRouterHttprouter() Option {
	return func(i *initializer) {
		i.router = httprouter.New()
	}
}

// WithLogger sets the logger, ignoring the log section of the config.
func WithLogger(l *slog.Logger) Option {
	return func(i *initializer) {
		i.logger = l
	}
}

// WithLogOutput sets where the logger built from the config writes. Default
// os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(i *initializer) {
		i.logOutput = w
	}
}

// DefaultLoggerOptions provides default settings for slog handlers.
// Level: Debug, Removes the time attribute from output.
var DefaultLoggerOptions = &slog.HandlerOptions{
	Level: slog.LevelDebug,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return a
	},
}

// WithPhusLogger configures slog with phuslu/log's JSON handler.
// Uses DefaultLoggerOptions if opts is nil.
func WithPhusLogger(opts *slog.HandlerOptions) Option {
	if opts == nil {
		opts = DefaultLoggerOptions
	}
	return WithLogger(slog.New(phuslog.SlogNewJSONHandler(os.Stderr, opts)))
}

// WithTextLogger configures slog with the standard library's text handler.
func WithTextLogger(opts *slog.HandlerOptions) Option {
	if opts == nil {
		opts = DefaultLoggerOptions
	}
	return WithLogger(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}

// WithStateCache replaces the oauth2 state store built from the cache section.
// The caller owns its lifecycle.
func WithStateCache(c cache.Cache[string, string]) Option {
	return func(i *initializer) {
		i.stateCache = c
	}
}

// WithPublisher replaces the broker publisher built from the events section.
// The caller owns its lifecycle.
func WithPublisher(p events.Publisher) Option {
	return func(i *initializer) {
		i.publisher = p
	}
}

// WithOAuth2Provider replaces the google provider built from the config.
func WithOAuth2Provider(p oauth2.Provider) Option {
	return func(i *initializer) {
		i.provider = p
	}
}
