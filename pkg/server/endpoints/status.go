package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/keyfold/keyfold/pkg/server"
)

// StatusResponse represents the JSON response from GET /
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// RegisterStatusEndpoints registers the public status endpoint
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status page (no auth required)
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("KEYFOLD_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}

		// Check if JSON is requested via Accept header or format query param
		accept := r.Header.Get("Accept")
		format := r.URL.Query().Get("format")
		if format == "json" || strings.Contains(accept, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(StatusResponse{Status: "ok", Version: version})
			return
		}

		html := `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width">
    <title>keyfold Status</title>
  </head>
  <body>
    <main>
      <h1>Status</h1>
      <p>Your keyfold server is running!</p>
      <p>Version ` + version + `</p>
    </main>
  </body>
</html>
`

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}
