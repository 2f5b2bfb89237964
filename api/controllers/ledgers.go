package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sealcard-backend/api/responses"
	"github.com/angelmondragon/sealcard-backend/api/validators"
	"github.com/angelmondragon/sealcard-backend/internal/ledgers"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

func ledgerServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
}

type applySealsRequest struct {
	Delta int     `json:"delta"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type joinRequest struct {
	AgreedToTerms bool `json:"agreed_to_terms"`
}

// LedgerApplySeals adds or removes stamps on a customer's card.
func LedgerApplySeals(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ledgerID, ok := pathID(w, r, logg, "ledgerId")
		if !ok {
			return
		}

		var body applySealsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplySeals(r.Context(), ledgers.ApplySealsInput{
			LedgerID: ledgerID,
			ActorID:  actorID,
			Delta:    body.Delta,
			Notes:    body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LedgerFinalize records an in-person redemption and clears the card.
func LedgerFinalize(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ledgerID, ok := pathID(w, r, logg, "ledgerId")
		if !ok {
			return
		}

		result, err := svc.FinalizeReward(r.Context(), ledgerID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func LedgerDeactivate(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ledgerID, ok := pathID(w, r, logg, "ledgerId")
		if !ok {
			return
		}

		ledger, err := svc.Deactivate(r.Context(), ledgerID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger)
	}
}

// LedgerJoin enrolls the calling customer and applies the welcome stamp.
func LedgerJoin(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		customerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		programID, ok := pathID(w, r, logg, "programId")
		if !ok {
			return
		}

		var body joinRequest
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Join(r.Context(), ledgers.JoinInput{
			ProgramID:     programID,
			CustomerID:    customerID,
			AgreedToTerms: body.AgreedToTerms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func LedgerGet(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ledgerID, ok := pathID(w, r, logg, "ledgerId")
		if !ok {
			return
		}

		ledger, err := svc.Get(r.Context(), ledgerID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger)
	}
}

// LedgerByCode resolves a scanned card code for the merchant at the counter.
func LedgerByCode(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		ledger, err := svc.GetByCode(r.Context(), chi.URLParam(r, "code"), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger)
	}
}

func LedgerTransactions(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ledgerID, ok := pathID(w, r, logg, "ledgerId")
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListTransactions(r.Context(), ledgerID, actorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// WalletList returns every card held by the calling customer.
func WalletList(svc ledgers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ledgerServiceMissing(w, r, logg)
			return
		}
		customerID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		cards, err := svc.ListForCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cards)
	}
}
