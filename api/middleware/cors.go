package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",  // local dev
	"https://modbus.app",     // marketing site
	"https://www.modbus.app", // marketing site
}

// CORS returns middleware that applies the API's allowed origin policy. The
// desktop app talks to the API directly and is unaffected by CORS; this policy
// exists for the account pages on the website.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
