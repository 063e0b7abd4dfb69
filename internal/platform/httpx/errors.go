package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-logistics/backoffice/internal/gateway"
	"github.com/meridian-logistics/backoffice/internal/query"
)

// RespondError maps gateway and query sentinels to HTTP problem responses.
// Session expiry is deliberately not handled here; the admin surface owns
// that flow because it must also clear the session store.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "the requested record does not exist")
	case errors.Is(err, gateway.ErrMalformedPayload):
		Problem(w, http.StatusBadGateway, "Bad Upstream Response", "unexpected server response")
	case errors.Is(err, query.ErrDisabled):
		Problem(w, http.StatusBadRequest, "Read Disabled", "the read was issued with the enabled flag off")
	case errors.Is(err, query.ErrMissingID):
		Problem(w, http.StatusBadRequest, "Missing ID", "the payload carries no identifier field")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
