package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(CORSMiddleware)
	r.Use(h.collector.Middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Text Generation API!"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", h.collector.Handler())

	// Public auth routes
	r.Post("/signup", h.SignupHandler)
	r.Post("/login", h.LoginHandler)
	r.Post("/forget-password", h.ForgetPasswordHandler)
	r.Get("/logout", h.LogoutHandler)
	r.Delete("/users/{username}", h.DeleteUserHandler)

	// Generation proxy routes
	r.Route("/gemini", func(r chi.Router) {
		r.Post("/gen_text", h.GenTextHandler)
		r.Post("/gen_image", h.GenImageHandler)
		r.Post("/gen_audio", h.GenAudioHandler)
	})

	// Bearer-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)

		r.Get("/profile", h.ProfileHandler)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/new", h.CreateChatHandler)
			r.Get("/sessions", h.ListSessionsHandler)
			r.Post("/{sessionID}/message", h.PostChatMessageHandler)
			r.Get("/{sessionID}/messages", h.GetSessionMessagesHandler)
		})
	})

	return r
}
