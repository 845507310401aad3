package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/shopspring/decimal"
)

// Response envelope kept compatible with what the browser client expects:
// {"success": true, "message": ..., "data": ...} on success, {"error": ...}
// otherwise.
type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successBody{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, successBody{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// respondInternal logs the real error and hands the caller a generic message;
// storage detail never leaks.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	respondError(w, http.StatusInternalServerError, "server error")
}

// money rounds a fixed-point amount to 2 decimals for the JSON surface.
// Rounding happens only here, never while accumulating.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
