package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/api/middleware"
	"github.com/angelmondragon/sealcard-backend/api/responses"
	"github.com/angelmondragon/sealcard-backend/api/validators"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

// requireActor writes 401 and returns false when no authenticated user is on
// the request.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	actorID, ok := middleware.ActorIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required"))
		return uuid.Nil, false
	}
	return actorID, true
}

func pathID(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) (uuid.UUID, bool) {
	id, err := validators.ParseUUIDParam(r, name)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}

// decodeOptionalBody decodes the body only when one was sent.
func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, dest)
}
