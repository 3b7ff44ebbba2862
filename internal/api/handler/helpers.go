package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"taskhub/internal/api/middleware"
	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected, which is what keeps update payloads to their allow-list.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", common.ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid request payload: %v", common.ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", common.ErrBadRequest)
	}
	return nil
}

// idParam parses a positive numeric path parameter. Anything else is
// reported as not found, the same as an id that does not exist.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrNotFound
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.Validationf("%s must be an integer", name)
	}
	return n, nil
}

func principal(r *http.Request) (model.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return model.Principal{}, common.ErrUnauthenticated
	}
	return p, nil
}
