package authority

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HTTPHandler serves GET validation requests: 200 with the decoded identity
// for a valid token, 401 otherwise. Downstream HTTP validators treat any
// non-success status as an invalid token.
func (s *Service) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		rawToken, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || rawToken == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		identity := s.Validate(r.Context(), rawToken)
		if !identity.IsValid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(identity)
	}
}
