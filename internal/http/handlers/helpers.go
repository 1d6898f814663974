package handlers

import (
	"math/rand"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func zapError(err error) zap.Field {
	return zap.Error(err)
}

func readPathString(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func readSessionCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(readPathString(r, "code")))
}

// generateSessionCode produces the 4-character code diners type to join a
// table session. The alphabet drops lookalike characters.
func generateSessionCode() string {
	chars := "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var code strings.Builder
	for i := 0; i < 4; i++ {
		code.WriteByte(chars[rand.Intn(len(chars))])
	}
	return code.String()
}
