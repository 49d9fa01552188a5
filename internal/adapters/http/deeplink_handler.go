package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"mates/internal/domain"
	"mates/internal/logger"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

type LinkPusher interface {
	Push(raw string) bool
}

type DeepLinkHandler struct {
	feed     LinkPusher
	resolver domain.LinkResolver
	outcomes domain.LinkOutcomeLog
	scheme   string
	log      logger.Logger
}

// NewDeepLinkHandler accepts a nil outcomes log; /deeplinks/recent then answers 503.
func NewDeepLinkHandler(feed LinkPusher, resolver domain.LinkResolver, outcomes domain.LinkOutcomeLog, scheme string, log logger.Logger) *DeepLinkHandler {
	return &DeepLinkHandler{
		feed:     feed,
		resolver: resolver,
		outcomes: outcomes,
		scheme:   scheme,
		log:      log,
	}
}

func (h *DeepLinkHandler) Push(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if !h.feed.Push(req.URL) {
		h.log.Warn("http: deep link queue full")
		JSONError(w, http.StatusServiceUnavailable, "Link queue is full, try again later")
		return
	}

	JSONSuccess(w, http.StatusAccepted, APIResponse{
		Message: "Link accepted",
	})
}

func (h *DeepLinkHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	outcome := h.resolver.Resolve(r.Context(), req.URL)

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    outcome,
	})
}

func (h *DeepLinkHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.outcomes == nil {
		JSONError(w, http.StatusServiceUnavailable, "Outcome history is not enabled")
		return
	}

	limit := int64(defaultRecentLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			JSONError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	events, err := h.outcomes.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("http: failed to read outcome history", "error", err)
		JSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    events,
		Meta:    map[string]any{"limit": limit, "count": len(events)},
	})
}

// Callback is the web landing page of a magic link. Tokens live in the URL
// fragment which never reaches the server, so the page posts its own URL back.
func (h *DeepLinkHandler) Callback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")

	if err := callbackPage.Execute(w, map[string]string{"Scheme": h.scheme}); err != nil {
		h.log.Error("http: failed to render callback page", "error", err)
	}
}

func (h *DeepLinkHandler) decode(w http.ResponseWriter, r *http.Request) (domain.DeepLinkRequest, bool) {
	var req domain.DeepLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}

	if validationErrors := ValidateStruct(req); len(validationErrors) > 0 {
		JSONValidationError(w, validationErrors)
		return req, false
	}

	return req, true
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Signing in</title>
</head>
<body>
<p id="status">Signing you in...</p>
<p><a id="open-app" href="#">Open the app</a></p>
<script>
(function () {
  var status = document.getElementById("status");
  var openApp = document.getElementById("open-app");
  var suffix = window.location.search + window.location.hash;
  openApp.href = {{.Scheme}} + "://auth/callback" + suffix;

  fetch("/deeplinks/resolve", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ url: window.location.href })
  })
    .then(function (res) { return res.json(); })
    .then(function (body) {
      var out = body.data || {};
      history.replaceState(null, "", window.location.pathname);
      if (out.kind === "auth_success") {
        status.textContent = "Signed in as " + out.user_identifier + ".";
      } else if (out.kind === "auth_error") {
        status.textContent = out.description || "The sign-in link could not be used. Please request a new one.";
      } else {
        status.textContent = "Failed to sign in. Please request a new magic link.";
      }
    })
    .catch(function () {
      status.textContent = "There was a problem processing this link.";
    });
})();
</script>
</body>
</html>
`))
