package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sealcard-backend/api/responses"
	"github.com/angelmondragon/sealcard-backend/api/validators"
	"github.com/angelmondragon/sealcard-backend/internal/drafts"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

func draftServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "draft service unavailable"))
}

// DraftGet loads the merchant's wizard, starting a fresh one when none exists.
func DraftGet(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			draftServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		draft, err := svc.Get(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

// DraftSetStep stores one field. The step is a number or a field name.
func DraftSetStep(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			draftServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		step, err := drafts.ParseStep(chi.URLParam(r, "step"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid step").
				WithDetails(map[string]any{"field": "step"}))
			return
		}

		var body drafts.SetStepInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.SetStep(r.Context(), ownerID, step, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

func DraftBack(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			draftServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		draft, err := svc.Back(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

func DraftDiscard(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			draftServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		if err := svc.Discard(r.Context(), ownerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// DraftPublish turns the wizard into a live program and clears the draft.
func DraftPublish(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			draftServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		program, err := svc.Publish(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, program)
	}
}
