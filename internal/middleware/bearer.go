package middleware

import (
	"net/http"
	"strings"
)

// BearerToken returns the credential of an "Authorization: Bearer" header. Any other
// scheme, or a blank token, yields ok=false.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
