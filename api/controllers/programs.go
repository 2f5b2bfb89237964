package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sealcard-backend/api/responses"
	"github.com/angelmondragon/sealcard-backend/api/validators"
	"github.com/angelmondragon/sealcard-backend/internal/ledgers"
	"github.com/angelmondragon/sealcard-backend/internal/programs"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

func programServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "program service unavailable"))
}

// ProgramCreate publishes a program from a complete payload.
func ProgramCreate(svc programs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			programServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body programs.ProgramInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		program, err := svc.Create(r.Context(), ownerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, program)
	}
}

func ProgramListMine(svc programs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			programServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		list, err := svc.ListMine(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ProgramGet(svc programs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			programServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		programID, ok := pathID(w, r, logg, "programId")
		if !ok {
			return
		}

		program, err := svc.Get(r.Context(), programID, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, program)
	}
}

// ProgramUpdate applies a partial update. required_stamps is locked once any
// customer has joined.
func ProgramUpdate(svc programs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			programServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		programID, ok := pathID(w, r, logg, "programId")
		if !ok {
			return
		}

		var body programs.UpdateProgramInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		program, err := svc.Update(r.Context(), programID, ownerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, program)
	}
}

func ProgramDeactivate(svc programs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			programServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		programID, ok := pathID(w, r, logg, "programId")
		if !ok {
			return
		}

		program, err := svc.Deactivate(r.Context(), programID, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, program)
	}
}

// ProgramLedgers pages through the customers enrolled in a program.
func ProgramLedgers(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		ownerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		programID, ok := pathID(w, r, logg, "programId")
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForProgram(r.Context(), programID, ownerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// PublicProgram renders the anonymous card view behind a program's QR code.
func PublicProgram(svc programs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			programServiceMissing(w, r, logg)
			return
		}

		view, err := svc.PublicView(r.Context(), chi.URLParam(r, "publicCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		responses.WriteSuccess(w, view)
	}
}
