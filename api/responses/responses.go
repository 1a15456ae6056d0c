package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/types"
)

// ErrorWriter renders err in one of the API envelopes.
type ErrorWriter func(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed, meta, msg := classify(err)

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: msg,
		},
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	logFailure(ctx, logg, err, typed)
	writeJSON(w, meta.HTTPStatus, payload)
}

// WriteStatusSuccess writes data in the {status: "success", data} envelope.
func WriteStatusSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.StatusEnvelope{Status: types.StatusSuccess, Data: data})
}

// WriteStatusList writes a list in the status envelope along with its length.
func WriteStatusList[T any](w http.ResponseWriter, items []T) {
	count := len(items)
	writeJSON(w, http.StatusOK, types.StatusEnvelope{Status: types.StatusSuccess, Data: items, Count: &count})
}

// WriteStatusError writes err in the {status: "error", message} envelope.
func WriteStatusError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed, meta, msg := classify(err)
	logFailure(ctx, logg, err, typed)
	writeJSON(w, meta.HTTPStatus, types.StatusEnvelope{
		Status:  types.StatusError,
		Message: msg,
		Code:    string(typed.Code()),
	})
}

func classify(err error) (*pkgerrors.Error, pkgerrors.Metadata, string) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict,
		pkgerrors.CodeIdempotency:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}
	return typed, meta, msg
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error) {
	if logg == nil {
		return
	}
	fields := pkgerrors.Dump(err).Fields()

	if d := typed.Details(); d != nil {
		if dm, ok := d.(map[string]any); ok {
			if index, ok := dm["index"]; ok {
				fields["item_index"] = index
			}
		}
	}

	ctx = logg.WithFields(ctx, fields)
	if typed.Retryable() {
		logg.Error(ctx, "request failed", err)
		return
	}
	logg.Warn(ctx, "request rejected")
}

// WriteJSON writes payload as is, without an envelope.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
