package handler

import (
	"encoding/json"
	"net/http"
)

// healthResponse is the JSON body for GET /healthz.
type healthResponse struct {
	Status string `json:"status"`
}

// Healthz handles GET /healthz. No authentication required.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
}
