package ledgers

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/internal/programs"
	"github.com/angelmondragon/sealcard-backend/internal/seals"
	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/metrics"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sealcard-backend/pkg/pagination"
	"github.com/angelmondragon/sealcard-backend/pkg/security"
)

const (
	welcomeNote   = "welcome"
	maxNotesLen   = 500
	welcomeStamps = 1
)

// errVersionConflict marks a lost compare-and-swap; the caller retries.
var errVersionConflict = stdErrors.New("ledger version changed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type programReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error)
}

type customerChecker interface {
	ExistsWithRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (bool, error)
}

type cardQR interface {
	CardQR(ctx context.Context, publicCode, cardCode string) (string, error)
}

// Service owns every customer ledger mutation and read.
type Service interface {
	ApplySeals(ctx context.Context, input ApplySealsInput) (*ApplySealsResult, error)
	FinalizeReward(ctx context.Context, ledgerID, actorID uuid.UUID) (*FinalizeRewardResult, error)
	Join(ctx context.Context, input JoinInput) (*JoinResult, error)
	Deactivate(ctx context.Context, ledgerID, actorID uuid.UUID) (*LedgerDTO, error)
	Get(ctx context.Context, ledgerID, actorID uuid.UUID) (*LedgerDTO, error)
	GetByCode(ctx context.Context, code string, actorID uuid.UUID) (*LedgerDTO, error)
	ListForProgram(ctx context.Context, programID, ownerID uuid.UUID, params pagination.Params) (*pagination.Page[LedgerDTO], error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]WalletCardDTO, error)
	ListTransactions(ctx context.Context, ledgerID, actorID uuid.UUID, params pagination.Params) (*pagination.Page[TransactionDTO], error)
	Reconcile(ctx context.Context, ledgerID uuid.UUID, repair bool) (*ReconcileResult, error)
	RecentlyTouched(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
}

// ServiceParams wires the ledger service.
type ServiceParams struct {
	Repository   Repository
	Programs     programReader
	Customers    customerChecker
	Tx           txRunner
	Outbox       outbox.Emitter
	QR           cardQR
	Metrics      *metrics.LedgerMetrics
	Logger       *logger.Logger
	Config       config.LedgerConfig
	GenerateCode func(length int) (string, error)
}

type service struct {
	repo         Repository
	programs     programReader
	customers    customerChecker
	tx           txRunner
	outbox       outbox.Emitter
	qr           cardQR
	metrics      *metrics.LedgerMetrics
	logg         *logger.Logger
	cfg          config.LedgerConfig
	generateCode func(length int) (string, error)
	now          func() time.Time
}

// NewService builds a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Programs == nil {
		return nil, fmt.Errorf("program reader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer checker required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.MaxCASRetries <= 0 {
		cfg.MaxCASRetries = 3
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 5
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 8
	}
	generate := params.GenerateCode
	if generate == nil {
		generate = security.GenerateCode
	}
	return &service{
		repo:         params.Repository,
		programs:     params.Programs,
		customers:    params.Customers,
		tx:           params.Tx,
		outbox:       params.Outbox,
		qr:           params.QR,
		metrics:      params.Metrics,
		logg:         params.Logger,
		cfg:          cfg,
		generateCode: generate,
		now:          time.Now,
	}, nil
}

// mutation is the outcome of one compute step against a loaded ledger.
type mutation struct {
	next   models.CustomerLedger
	txn    *models.SealTransaction
	events func(next *models.CustomerLedger, txn *models.SealTransaction) []outbox.DomainEvent
}

type computeFunc func(ledger *models.CustomerLedger, program *models.LoyaltyProgram, at time.Time) (*mutation, error)

// mutate loads the ledger, checks ownership and runs compute inside a
// version-guarded transaction, retrying on lost races up to MaxCASRetries.
func (s *service) mutate(ctx context.Context, ledgerID, actorID uuid.UUID, compute computeFunc) (*mutation, *models.LoyaltyProgram, error) {
	if ledgerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger id required")
	}
	if actorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ledger, err := s.loadLedger(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}
	program, err := s.loadProgram(ctx, ledger.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if program.OwnerID != actorID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "ledger belongs to another merchant")
	}

	for attempt := 0; attempt < s.cfg.MaxCASRetries; attempt++ {
		if attempt > 0 {
			s.metrics.IncCASRetry()
			if ledger, err = s.loadLedger(ctx, ledgerID); err != nil {
				return nil, nil, err
			}
		}

		at := s.now().UTC()
		if !at.After(ledger.UpdatedAt) {
			at = ledger.UpdatedAt.Add(time.Microsecond)
		}
		m, err := compute(ledger, program, at)
		if err != nil {
			return nil, nil, err
		}
		m.next.Version = ledger.Version + 1
		m.next.UpdatedAt = at
		if m.txn != nil {
			m.txn.LedgerVersion = m.next.Version
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			swapped, err := repo.CompareAndSwap(ctx, &m.next, ledger.Version)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDB, err, "update ledger")
			}
			if !swapped {
				return errVersionConflict
			}
			if m.txn != nil {
				if err := repo.AppendTransaction(ctx, m.txn); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDB, err, "append seal transaction")
				}
			}
			for _, event := range m.events(&m.next, m.txn) {
				if err := s.outbox.Emit(ctx, tx, event); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDB, err, "emit "+string(event.EventType))
				}
			}
			return nil
		})
		if stdErrors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return m, program, nil
	}

	logCtx := s.logg.WithLedgerID(ctx, ledgerID.String())
	s.logg.Warn(logCtx, "ledger update gave up after repeated version conflicts")
	return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ledger was modified concurrently, retry the request").
		WithDetails(map[string]any{"attempts": s.cfg.MaxCASRetries})
}

func (s *service) ApplySeals(ctx context.Context, input ApplySealsInput) (*ApplySealsResult, error) {
	notes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	var earned int
	m, program, err := s.mutate(ctx, input.LedgerID, input.ActorID, func(ledger *models.CustomerLedger, program *models.LoyaltyProgram, at time.Time) (*mutation, error) {
		if !ledger.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ledger is deactivated")
		}
		res, err := seals.ApplyDelta(ledger.CurrentStamps, ledger.TotalRewardsEarned, program.RequiredStamps, input.Delta)
		if err != nil {
			return nil, sealError(err, ledger, program)
		}
		earned = res.RewardsEarnedThisCall

		next := *ledger
		next.CurrentStamps = res.NewStamps
		next.TotalRewardsEarned = res.NewTotalRewardsEarned
		txn := &models.SealTransaction{
			ID:           uuid.New(),
			LedgerID:     ledger.ID,
			ProgramID:    ledger.ProgramID,
			ActorID:      input.ActorID,
			Kind:         enums.SealKindForDelta(input.Delta),
			SealsGiven:   input.Delta,
			StampsAfter:  res.NewStamps,
			RewardsAfter: res.NewTotalRewardsEarned,
			Notes:        notes,
			CreatedAt:    at,
		}
		return &mutation{next: next, txn: txn, events: s.sealsAppliedEvents(input.ActorID, res)}, nil
	})
	if err != nil {
		s.metrics.ObserveSealApplication(outcomeFor(err))
		return nil, err
	}

	s.metrics.ObserveSealApplication(metrics.OutcomeApplied)
	s.metrics.AddRewardsEarned(earned)
	return &ApplySealsResult{
		Ledger:                ledgerFromModel(&m.next, program.RequiredStamps),
		TransactionID:         m.txn.ID,
		SealsGiven:            input.Delta,
		RewardsEarnedThisCall: earned,
	}, nil
}

func (s *service) sealsAppliedEvents(actorID uuid.UUID, res seals.Result) func(*models.CustomerLedger, *models.SealTransaction) []outbox.DomainEvent {
	return func(next *models.CustomerLedger, txn *models.SealTransaction) []outbox.DomainEvent {
		actor := &outbox.ActorRef{UserID: actorID, Role: enums.UserRoleMerchant}
		events := []outbox.DomainEvent{{
			EventType:     enums.EventSealsApplied,
			AggregateType: enums.AggregateCustomerLedger,
			AggregateID:   next.ID,
			Actor:         actor,
			OccurredAt:    txn.CreatedAt,
			Data: payloads.SealsAppliedEvent{
				LedgerID:              next.ID,
				ProgramID:             next.ProgramID,
				CustomerID:            next.CustomerID,
				TransactionID:         txn.ID,
				ActorID:               actorID,
				SealsGiven:            txn.SealsGiven,
				NewStamps:             res.NewStamps,
				NewTotalRewardsEarned: res.NewTotalRewardsEarned,
				RewardsEarnedThisCall: res.RewardsEarnedThisCall,
				Version:               next.Version,
			},
		}}
		if res.RewardsEarnedThisCall > 0 {
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventRewardEarned,
				AggregateType: enums.AggregateCustomerLedger,
				AggregateID:   next.ID,
				Actor:         actor,
				OccurredAt:    txn.CreatedAt,
				Data: payloads.RewardEarnedEvent{
					LedgerID:           next.ID,
					ProgramID:          next.ProgramID,
					CustomerID:         next.CustomerID,
					RewardsEarned:      res.RewardsEarnedThisCall,
					TotalRewardsEarned: res.NewTotalRewardsEarned,
				},
			})
		}
		return events
	}
}

func (s *service) FinalizeReward(ctx context.Context, ledgerID, actorID uuid.UUID) (*FinalizeRewardResult, error) {
	var cleared int
	m, program, err := s.mutate(ctx, ledgerID, actorID, func(ledger *models.CustomerLedger, _ *models.LoyaltyProgram, at time.Time) (*mutation, error) {
		if !ledger.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ledger is deactivated")
		}
		res := seals.FinalizeReward(ledger.TotalRewardsEarned)
		cleared = ledger.CurrentStamps

		next := *ledger
		next.CurrentStamps = res.NewStamps
		next.TotalRewardsEarned = res.NewTotalRewardsEarned
		txn := &models.SealTransaction{
			ID:           uuid.New(),
			LedgerID:     ledger.ID,
			ProgramID:    ledger.ProgramID,
			ActorID:      actorID,
			Kind:         enums.SealKindRewardRedeemed,
			SealsGiven:   0,
			StampsAfter:  res.NewStamps,
			RewardsAfter: res.NewTotalRewardsEarned,
			CreatedAt:    at,
		}
		events := func(next *models.CustomerLedger, txn *models.SealTransaction) []outbox.DomainEvent {
			return []outbox.DomainEvent{{
				EventType:     enums.EventRewardRedeemed,
				AggregateType: enums.AggregateCustomerLedger,
				AggregateID:   next.ID,
				Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.UserRoleMerchant},
				OccurredAt:    txn.CreatedAt,
				Data: payloads.RewardRedeemedEvent{
					LedgerID:           next.ID,
					ProgramID:          next.ProgramID,
					CustomerID:         next.CustomerID,
					TransactionID:      txn.ID,
					ActorID:            actorID,
					StampsCleared:      cleared,
					TotalRewardsEarned: next.TotalRewardsEarned,
					Version:            next.Version,
				},
			}}
		}
		return &mutation{next: next, txn: txn, events: events}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRewardRedeemed()
	return &FinalizeRewardResult{
		Ledger:        ledgerFromModel(&m.next, program.RequiredStamps),
		TransactionID: m.txn.ID,
		StampsCleared: cleared,
	}, nil
}

func (s *service) Deactivate(ctx context.Context, ledgerID, actorID uuid.UUID) (*LedgerDTO, error) {
	var already *models.CustomerLedger
	m, program, err := s.mutate(ctx, ledgerID, actorID, func(ledger *models.CustomerLedger, _ *models.LoyaltyProgram, at time.Time) (*mutation, error) {
		if !ledger.IsActive {
			already = ledger
			return nil, errAlreadyInactive
		}
		next := *ledger
		next.IsActive = false
		events := func(next *models.CustomerLedger, _ *models.SealTransaction) []outbox.DomainEvent {
			return []outbox.DomainEvent{{
				EventType:     enums.EventLedgerDeactivated,
				AggregateType: enums.AggregateCustomerLedger,
				AggregateID:   next.ID,
				Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.UserRoleMerchant},
				OccurredAt:    at,
				Data: payloads.LedgerDeactivatedEvent{
					LedgerID:      next.ID,
					ProgramID:     next.ProgramID,
					CustomerID:    next.CustomerID,
					ActorID:       actorID,
					DeactivatedAt: at,
				},
			}}
		}
		return &mutation{next: next, events: events}, nil
	})
	if stdErrors.Is(err, errAlreadyInactive) && already != nil {
		program, perr := s.loadProgram(ctx, already.ProgramID)
		if perr != nil {
			return nil, perr
		}
		dto := ledgerFromModel(already, program.RequiredStamps)
		return &dto, nil
	}
	if err != nil {
		return nil, err
	}
	dto := ledgerFromModel(&m.next, program.RequiredStamps)
	return &dto, nil
}

var errAlreadyInactive = stdErrors.New("ledger already inactive")

func (s *service) Join(ctx context.Context, input JoinInput) (*JoinResult, error) {
	if !input.AgreedToTerms {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terms must be accepted to join").
			WithDetails(map[string]string{"agreed_to_terms": "must be true"})
	}
	if input.ProgramID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "program id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	program, err := s.loadProgram(ctx, input.ProgramID)
	if err != nil {
		return nil, err
	}
	if !program.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
	}
	ok, err := s.customers.ExistsWithRole(ctx, input.CustomerID, enums.UserRoleCustomer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "check customer")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if err := s.ensureNotParticipating(ctx, program.ID, input.CustomerID); err != nil {
		return nil, err
	}

	if _, err := seals.ApplyDelta(0, 0, program.RequiredStamps, welcomeStamps); err != nil {
		return nil, sealError(err, &models.CustomerLedger{}, program)
	}

	for attempt := 0; attempt < s.cfg.CodeAttempts; attempt++ {
		code, err := s.generateCode(s.cfg.CodeLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate card code")
		}
		taken, err := s.repo.CardCodeExists(ctx, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "check card code")
		}
		if taken {
			continue
		}

		ledger, welcome, err := s.insertLedger(ctx, program.ID, input.CustomerID, code)
		if err != nil {
			if !db.IsUniqueViolation(err, "") {
				return nil, err
			}
			if perr := s.ensureNotParticipating(ctx, program.ID, input.CustomerID); perr != nil {
				return nil, perr
			}
			// the card code was claimed between the probe and the insert
			continue
		}

		s.metrics.IncJoin()
		s.metrics.AddRewardsEarned(welcome.RewardsEarnedThisCall)
		return &JoinResult{
			LedgerID:            ledger.ID,
			CardCode:            ledger.CardCode,
			WelcomeStampApplied: true,
			CurrentStamps:       ledger.CurrentStamps,
			TotalRewardsEarned:  ledger.TotalRewardsEarned,
			QRCodeURL:           s.cardQRCode(ctx, program, ledger),
		}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeCodeGenerationExhausted, "could not allocate a unique card code").
		WithDetails(map[string]any{"attempts": s.cfg.CodeAttempts})
}

// insertLedger creates the ledger, its welcome entry and the joined event.
// The program row is share-locked for the whole transaction so the welcome
// stamp is computed against the required stamps the ledger commits under.
func (s *service) insertLedger(ctx context.Context, programID, customerID uuid.UUID, code string) (*models.CustomerLedger, seals.Result, error) {
	now := s.now().UTC()
	var (
		ledger  *models.CustomerLedger
		welcome seals.Result
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		program, err := repo.LockProgram(ctx, programID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDB, err, "lock program")
		}
		if !program.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
		}
		if welcome, err = seals.ApplyDelta(0, 0, program.RequiredStamps, welcomeStamps); err != nil {
			return sealError(err, &models.CustomerLedger{}, program)
		}

		ledger = &models.CustomerLedger{
			ID:                 uuid.New(),
			ProgramID:          programID,
			CustomerID:         customerID,
			CardCode:           code,
			CurrentStamps:      welcome.NewStamps,
			TotalRewardsEarned: welcome.NewTotalRewardsEarned,
			IsActive:           true,
			Version:            1,
			JoinedAt:           now,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		note := welcomeNote
		txn := &models.SealTransaction{
			ID:            uuid.New(),
			LedgerID:      ledger.ID,
			ProgramID:     programID,
			ActorID:       customerID,
			LedgerVersion: ledger.Version,
			Kind:          enums.SealKindWelcome,
			SealsGiven:    welcomeStamps,
			StampsAfter:   welcome.NewStamps,
			RewardsAfter:  welcome.NewTotalRewardsEarned,
			Notes:         &note,
			CreatedAt:     now,
		}

		if err := repo.Create(ctx, ledger); err != nil {
			return err
		}
		if err := repo.AppendTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDB, err, "append welcome transaction")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCustomerJoined,
			AggregateType: enums.AggregateCustomerLedger,
			AggregateID:   ledger.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: enums.UserRoleCustomer},
			OccurredAt:    now,
			Data: payloads.CustomerJoinedEvent{
				LedgerID:           ledger.ID,
				ProgramID:          programID,
				CustomerID:         customerID,
				CardCode:           code,
				CurrentStamps:      ledger.CurrentStamps,
				TotalRewardsEarned: ledger.TotalRewardsEarned,
				JoinedAt:           now,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, seals.Result{}, err
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, seals.Result{}, typed
		}
		return nil, seals.Result{}, pkgerrors.Wrap(pkgerrors.CodeDB, err, "create ledger")
	}
	return ledger, welcome, nil
}

func (s *service) ensureNotParticipating(ctx context.Context, programID, customerID uuid.UUID) error {
	_, err := s.repo.FindByProgramAndCustomer(ctx, programID, customerID)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeAlreadyParticipating, "customer already participates in this program")
	}
	if db.IsNotFound(err) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDB, err, "check participation")
}

// cardQRCode never fails the join; a missing image only hides the QR.
func (s *service) cardQRCode(ctx context.Context, program *models.LoyaltyProgram, ledger *models.CustomerLedger) string {
	if s.qr == nil {
		return ""
	}
	url, err := s.qr.CardQR(ctx, program.PublicCode, ledger.CardCode)
	if err != nil {
		logCtx := s.logg.WithLedgerID(ctx, ledger.ID.String())
		s.logg.Error(logCtx, "card qr code generation failed", err)
		return ""
	}
	return url
}

func (s *service) Get(ctx context.Context, ledgerID, actorID uuid.UUID) (*LedgerDTO, error) {
	ledger, program, err := s.loadReadable(ctx, ledgerID, actorID)
	if err != nil {
		return nil, err
	}
	dto := ledgerFromModel(ledger, program.RequiredStamps)
	return &dto, nil
}

func (s *service) GetByCode(ctx context.Context, code string, actorID uuid.UUID) (*LedgerDTO, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card code required")
	}
	ledger, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "load ledger")
	}
	program, err := s.loadProgram(ctx, ledger.ProgramID)
	if err != nil {
		return nil, err
	}
	if program.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ledger belongs to another merchant")
	}
	dto := ledgerFromModel(ledger, program.RequiredStamps)
	return &dto, nil
}

func (s *service) ListForProgram(ctx context.Context, programID, ownerID uuid.UUID, params pagination.Params) (*pagination.Page[LedgerDTO], error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if program.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "program belongs to another merchant")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByProgram(ctx, programID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "list ledgers")
	}
	page := pagination.Trim(rows, params.Limit, func(l models.CustomerLedger) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	out := &pagination.Page[LedgerDTO]{Items: make([]LedgerDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, ledgerFromModel(&page.Items[i], program.RequiredStamps))
	}
	return out, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]WalletCardDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "list wallet")
	}
	cache := map[uuid.UUID]*models.LoyaltyProgram{}
	out := make([]WalletCardDTO, 0, len(rows))
	for i := range rows {
		program, ok := cache[rows[i].ProgramID]
		if !ok {
			if program, err = s.loadProgram(ctx, rows[i].ProgramID); err != nil {
				return nil, err
			}
			cache[program.ID] = program
		}
		out = append(out, WalletCardDTO{
			Ledger:  ledgerFromModel(&rows[i], program.RequiredStamps),
			Program: programs.PublicFromModel(program),
		})
	}
	return out, nil
}

func (s *service) ListTransactions(ctx context.Context, ledgerID, actorID uuid.UUID, params pagination.Params) (*pagination.Page[TransactionDTO], error) {
	if _, _, err := s.loadReadable(ctx, ledgerID, actorID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListTransactions(ctx, ledgerID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "list transactions")
	}
	page := pagination.Trim(rows, params.Limit, func(t models.SealTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := &pagination.Page[TransactionDTO]{Items: make([]TransactionDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, transactionFromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Reconcile(ctx context.Context, ledgerID uuid.UUID, repair bool) (*ReconcileResult, error) {
	ledger, err := s.loadLedger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	program, err := s.loadProgram(ctx, ledger.ProgramID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ReplayEntries(ctx, ledgerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "load seal log")
	}
	replayed, err := seals.Replay(program.RequiredStamps, entries)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "seal log does not replay").
			WithDetails(map[string]any{"ledger_id": ledgerID})
	}

	result := &ReconcileResult{
		LedgerID:        ledgerID,
		Entries:         len(entries),
		CachedStamps:    ledger.CurrentStamps,
		CachedRewards:   ledger.TotalRewardsEarned,
		ReplayedStamps:  replayed.NewStamps,
		ReplayedRewards: replayed.NewTotalRewardsEarned,
	}
	result.Mismatch = result.CachedStamps != result.ReplayedStamps || result.CachedRewards != result.ReplayedRewards
	if !result.Mismatch || !repair {
		return result, nil
	}

	next := *ledger
	next.CurrentStamps = replayed.NewStamps
	next.TotalRewardsEarned = replayed.NewTotalRewardsEarned
	next.Version = ledger.Version + 1
	next.UpdatedAt = s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.repo.WithTx(tx).CompareAndSwap(ctx, &next, ledger.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDB, err, "repair ledger")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "ledger changed during reconcile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Repaired = true
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"ledger_id":      ledgerID.String(),
		"cached_stamps":  result.CachedStamps,
		"cached_rewards": result.CachedRewards,
		"stamps":         result.ReplayedStamps,
		"rewards":        result.ReplayedRewards,
	})
	s.logg.Warn(logCtx, "ledger repaired from seal log")
	return result, nil
}

func (s *service) RecentlyTouched(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := s.repo.ListTouchedSince(ctx, since, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "list recent ledgers")
	}
	return ids, nil
}

// loadReadable allows the owning merchant and the ledger's customer.
func (s *service) loadReadable(ctx context.Context, ledgerID, actorID uuid.UUID) (*models.CustomerLedger, *models.LoyaltyProgram, error) {
	if actorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ledger, err := s.loadLedger(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}
	program, err := s.loadProgram(ctx, ledger.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if program.OwnerID != actorID && ledger.CustomerID != actorID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "ledger not accessible")
	}
	return ledger, program, nil
}

func (s *service) loadLedger(ctx context.Context, id uuid.UUID) (*models.CustomerLedger, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger id required")
	}
	ledger, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "load ledger")
	}
	return ledger, nil
}

func (s *service) loadProgram(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	program, err := s.programs.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "load program")
	}
	return program, nil
}

func normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxNotesLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notes too long").
			WithDetails(map[string]string{"notes": fmt.Sprintf("must be at most %d characters", maxNotesLen)})
	}
	return &trimmed, nil
}

// sealError maps seals precondition failures to API errors.
func sealError(err error, ledger *models.CustomerLedger, program *models.LoyaltyProgram) error {
	details := map[string]any{
		"current_stamps":  ledger.CurrentStamps,
		"required_stamps": program.RequiredStamps,
		"remaining":       seals.Remaining(ledger.CurrentStamps, program.RequiredStamps),
	}
	switch {
	case stdErrors.Is(err, seals.ErrInvalidDelta):
		return pkgerrors.Wrap(pkgerrors.CodeInvalidDelta, err, "seal delta must be non-zero")
	case stdErrors.Is(err, seals.ErrExceedsCapacity):
		return pkgerrors.Wrap(pkgerrors.CodeExceedsCapacity, err, "grant exceeds remaining card capacity").WithDetails(details)
	case stdErrors.Is(err, seals.ErrExceedsRemoval):
		return pkgerrors.Wrap(pkgerrors.CodeExceedsRemoval, err, "cannot remove more seals than present").WithDetails(details)
	case stdErrors.Is(err, seals.ErrInvalidRequirement):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "program required stamps must be positive")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply seals")
}

func outcomeFor(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeInvalidDelta:
		return metrics.OutcomeInvalidDelta
	case pkgerrors.CodeExceedsCapacity:
		return metrics.OutcomeExceedsCapacity
	case pkgerrors.CodeExceedsRemoval:
		return metrics.OutcomeExceedsRemoval
	case pkgerrors.CodeStateConflict:
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}
