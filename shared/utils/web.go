package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	sharederrors "github.com/itchan-dev/caster/shared/errors"
	"github.com/itchan-dev/caster/shared/logger"
)

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	var e *sharederrors.ErrorWithStatusCode
	if errors.As(err, &e) {
		http.Error(w, e.Error(), e.StatusCode)
		return
	}
	// default error is 500, details stay in the log
	logger.Log.Error("internal error", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteErrorAndStatusCode(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
