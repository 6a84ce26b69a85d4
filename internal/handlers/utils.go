package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aaronzipp/werewolf-gm/internal/game"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pathParts splits the path after prefix into its segments
func pathParts(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// statusFor maps a domain failure to an HTTP status
func statusFor(kind game.Kind) int {
	switch kind {
	case game.KindSessionNotFound, game.KindPlayerNotFound:
		return http.StatusNotFound
	case game.KindInvalidCode, game.KindInvalidName, game.KindUnknownCommand, game.KindNoActiveSession:
		return http.StatusBadRequest
	case "":
		return http.StatusOK
	default:
		return http.StatusConflict
	}
}
