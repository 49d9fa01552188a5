package http

import (
	"net/http"

	"mates/internal/config"
	"mates/internal/logger"
)

type RouterDeps struct {
	DeepLink *DeepLinkHandler
	Auth     *AuthHandler
	Ws       http.HandlerFunc
}

func NewRouter(cfg *config.Config, deps *RouterDeps, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	globalMw := NewStack()
	globalMw.Use(RequestLog(log))
	globalMw.Use(CORS(cfg))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if deps.Ws != nil {
		mux.HandleFunc("GET /ws", deps.Ws)
	}

	mux.HandleFunc("POST /deeplinks", deps.DeepLink.Push)
	mux.HandleFunc("POST /deeplinks/resolve", deps.DeepLink.Resolve)
	mux.HandleFunc("GET /deeplinks/recent", deps.DeepLink.Recent)
	mux.HandleFunc("GET /auth/callback", deps.DeepLink.Callback)

	mux.HandleFunc("GET /auth/state", deps.Auth.State)
	mux.HandleFunc("POST /auth/signout", deps.Auth.SignOut)

	return globalMw.Apply(mux)
}
