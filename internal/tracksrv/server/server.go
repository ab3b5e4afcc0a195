package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/httpx"
	commonmiddleware "github.com/evalforge/evalforge/internal/common/middleware"
	"github.com/evalforge/evalforge/internal/tracksrv/api"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// TrackServer is the HTTP front end of the tracking service.
type TrackServer struct {
	Router *chi.Mux
}

// CreateNewServer builds a server with an empty router. Call MountHandlers
// before serving.
func CreateNewServer() (*TrackServer, error) {
	s := &TrackServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

// MountHandlers wires middleware and all API routes. The API is served under
// /v1; /v0 remains as a deprecated alias that answers identically but tags
// every response with a Deprecation header.
func (s *TrackServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(commonmiddleware.SetTimeout(config.Config().GetRequestTimeout()))
	s.Router.Use(db.LoadDBMiddleware)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   config.Config().CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Confirm-Password"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.Router.Route("/v1", func(r chi.Router) {
		api.Router(r)
	})
	s.Router.Route("/v0", func(r chi.Router) {
		r.Use(deprecationHeader)
		api.Router(r)
	})

	s.Router.Get("/version", s.getVersion)
	s.Router.Get("/ready", s.getReadiness)
}

// deprecationHeader marks responses from the retired API prefix.
func deprecationHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Deprecation", "true")
		next.ServeHTTP(w, r)
	})
}

type getVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *TrackServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &getVersionRsp{
		ServerVersion: "Evalforge Tracking Server: " + trackcommon.ServerVersion,
		ApiVersion:    trackcommon.ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *TrackServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")

	ctx, err := db.ConnCtx(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("database connection failed during readiness check")
		httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database connection failed",
		})
		return
	}
	defer db.DB(ctx).Close(ctx)

	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
