package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err through the payhooks error envelope.
func writeError(w http.ResponseWriter, err error) {
	mapped := core.MapError(err)
	status := http.StatusInternalServerError
	textCode := core.ErrorInternal
	if mapped != nil {
		if mapped.Code > 0 {
			status = mapped.Code
		}
		if mapped.TextCode != "" {
			textCode = mapped.TextCode
		}
	}
	writeJSON(w, status, inbound.ResponseBody{Status: inbound.StatusError, Error: textCode})
}

func tokensEqual(given string, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
