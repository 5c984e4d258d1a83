package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/qualphys/reasoner/internal/domain/errors"
	"github.com/qualphys/reasoner/internal/infrastructure/storage"
)

// respondJSON writes v as the JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// errorBody is the uniform error shape for every non-2xx response
// (spec §6, §7: "{detail: string}").
type errorBody struct {
	Detail string `json:"detail"`
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorBody{Detail: detail})
}

// fieldError is satisfied by errors that name the offending request
// field, so respondEngineError can report it without string-parsing.
type fieldError interface {
	Error() string
	Field() string
}

// respondEngineError classifies an error returned by the propagation,
// comparison, loader or trace packages into the status code spec §7
// assigns it and writes the uniform error body.
func respondEngineError(w http.ResponseWriter, err error) {
	var validation *domainerrors.ValidationError
	var unknownNode *domainerrors.UnknownNodeError
	var loadErr *domainerrors.LoadError
	var internalErr *domainerrors.InternalError
	var field fieldError

	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &unknownNode):
		respondError(w, http.StatusBadRequest, unknownNode.Error())
	case errors.As(err, &loadErr):
		// Load-time failures are tier-1 authoring errors (spec §7), but
		// the HTTP surface reports them as 500: the caller asked for a
		// reload and the server's own knowledge pack failed to merge,
		// not something wrong with the request (spec §6).
		respondError(w, http.StatusInternalServerError, loadErr.Error())
	case errors.As(err, &internalErr):
		log.Error().Err(internalErr.Unwrap()).Str("token", internalErr.Token).Msg("internal error")
		respondError(w, http.StatusInternalServerError, internalErr.Error())
	case errors.As(err, &field):
		respondError(w, http.StatusBadRequest, field.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		log.Error().Err(err).Msg("unclassified engine error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
