package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the uniform error body: a human readable message plus
// optional machine details (validation violations, dev diagnostics...).
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON écrit payload en JSON avec le statut donné. Un payload nil donne
// un corps "null" explicite plutôt qu'une réponse vide.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		_, _ = w.Write([]byte("null"))
		return
	}
	// Le statut est déjà parti; une erreur d'encodage ne peut plus être
	// signalée au client autrement que par un corps tronqué.
	_ = json.NewEncoder(w).Encode(payload)
}

// JSONError écrit l'enveloppe d'erreur uniforme.
func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Internal journalise la cause côté serveur et renvoie un message générique;
// en développement le diagnostic est exposé dans details.
func Internal(w http.ResponseWriter, log *zap.Logger, dev bool, op, msg string, err error) {
	log.Error(op, zap.Error(err))
	var details any
	if dev {
		details = err.Error()
	}
	JSONError(w, http.StatusInternalServerError, msg, details)
}
