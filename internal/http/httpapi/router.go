package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"storyreel/internal/http/handlers"
	mw "storyreel/internal/middleware"
)

// Options collects the cross-cutting pieces the router wires in front of the
// handlers.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   mw.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		mw.RequestID,
		mw.Logger(opts.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(mw.CORS(opts.AllowedOrigins))
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(mw.RateLimit(opts.RateLimitPerMin, time.Minute))
	}
	r.Use(mw.I18N(opts.DefaultLocale, opts.CountryLookup))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.SessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.SessionGet)
			r.Post("/mode", app.ModeSelect)
			r.Post("/dispatch", app.Dispatch)
			r.Get("/status", app.Status)
			r.Get("/events", app.Events)
			r.Post("/shots/{index}/regenerate", app.Regenerate)
			r.Post("/timeline/reorder", app.TimelineReorder)
			r.Post("/timeline/clips", app.TimelineInsertClip)
			r.Delete("/timeline/clips/{clip_id}", app.TimelineRemoveClip)
			r.Post("/timeline/audio", app.TimelineSetAudio)
			r.Post("/uploads", app.Upload)
			r.Post("/merge", app.Merge)
			r.Get("/artifacts", app.Artifacts)
			r.Get("/export", app.Export)
		})
	})

	return r
}
