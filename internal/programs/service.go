package programs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sealcard-backend/pkg/security"
)

const (
	publicCodeLength        = 6
	defaultPublicCodeTrials = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type qrBuilder interface {
	ProgramQR(ctx context.Context, publicCode string) (string, error)
}

// Service exposes merchant program operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input ProgramInput) (*ProgramDTO, error)
	Get(ctx context.Context, id, ownerID uuid.UUID) (*ProgramDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]ProgramDTO, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, input UpdateProgramInput) (*ProgramDTO, error)
	Deactivate(ctx context.Context, id, ownerID uuid.UUID) (*ProgramDTO, error)
	PublicView(ctx context.Context, publicCode string) (*PublicProgramDTO, error)
}

// ServiceParams wires the program service.
type ServiceParams struct {
	Repository   Repository
	Tx           txRunner
	Outbox       outbox.Emitter
	QR           qrBuilder
	Logger       *logger.Logger
	CodeAttempts int
	GenerateCode func(length int) (string, error)
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outbox.Emitter
	qr           qrBuilder
	logg         *logger.Logger
	codeAttempts int
	generateCode func(length int) (string, error)
	now          func() time.Time
}

// NewService builds a program service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("program repository required")
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
	attempts := params.CodeAttempts
	if attempts <= 0 {
		attempts = defaultPublicCodeTrials
	}
	generate := params.GenerateCode
	if generate == nil {
		generate = security.GenerateCode
	}
	return &service{
		repo:         params.Repository,
		tx:           params.Tx,
		outbox:       params.Outbox,
		qr:           params.QR,
		logg:         params.Logger,
		codeAttempts: attempts,
		generateCode: generate,
		now:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input ProgramInput) (*ProgramDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	code, err := s.allocatePublicCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	program := &models.LoyaltyProgram{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		PublicCode: code,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	input.applyTo(program)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, program); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "public code already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDB, err, "create program")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProgramPublished,
			AggregateType: enums.AggregateLoyaltyProgram,
			AggregateID:   program.ID,
			Actor:         &outbox.ActorRef{UserID: ownerID, Role: enums.UserRoleMerchant},
			Data: payloads.ProgramPublishedEvent{
				ProgramID:        program.ID,
				OwnerID:          ownerID,
				PublicCode:       program.PublicCode,
				BusinessCategory: string(program.BusinessCategory),
				RequiredStamps:   program.RequiredStamps,
				PublishedAt:      now,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "publish program")
	}

	s.attachQRCode(ctx, program)
	return FromModel(program), nil
}

// attachQRCode is best effort; a program without a QR image is still usable
// through its public link.
func (s *service) attachQRCode(ctx context.Context, program *models.LoyaltyProgram) {
	if s.qr == nil {
		return
	}
	logCtx := s.logg.WithProgramID(ctx, program.ID.String())
	url, err := s.qr.ProgramQR(ctx, program.PublicCode)
	if err != nil {
		s.logg.Error(logCtx, "program qr code generation failed", err)
		return
	}
	if err := s.repo.SetQRCodeURL(ctx, program.ID, url); err != nil {
		s.logg.Error(logCtx, "persist program qr code failed", err)
		return
	}
	program.QRCodeURL = &url
}

func (s *service) allocatePublicCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code, err := s.generateCode(publicCodeLength)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate public code")
		}
		taken, err := s.repo.PublicCodeExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDB, err, "check public code")
		}
		if !taken {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeCodeGenerationExhausted, "could not allocate a unique public code")
}

func (s *service) Get(ctx context.Context, id, ownerID uuid.UUID) (*ProgramDTO, error) {
	program, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return FromModel(program), nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]ProgramDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "list programs")
	}
	out := make([]ProgramDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id, ownerID uuid.UUID, input UpdateProgramInput) (*ProgramDTO, error) {
	program, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !program.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "program is deactivated")
	}

	merged := input.mergeInto(inputFromModel(program)).Normalize()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	stampsChanged := merged.RequiredStamps != program.RequiredStamps
	merged.applyTo(program)

	var updated bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if stampsChanged {
			if _, err := repo.FindForUpdate(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDB, err, "lock program")
			}
		}
		var err error
		if updated, err = repo.UpdateDesign(ctx, program, stampsChanged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDB, err, "update program")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !updated {
		if stampsChanged {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "required stamps cannot change once customers have joined").
				WithDetails(map[string]string{FieldRequiredStamps: "locked"})
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "program is deactivated")
	}

	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "reload program")
	}
	return FromModel(fresh), nil
}

func (s *service) Deactivate(ctx context.Context, id, ownerID uuid.UUID) (*ProgramDTO, error) {
	program, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !program.IsActive {
		return FromModel(program), nil
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.repo.WithTx(tx).Deactivate(ctx, program.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDB, err, "deactivate program")
		}
		if !changed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProgramDeactivated,
			AggregateType: enums.AggregateLoyaltyProgram,
			AggregateID:   program.ID,
			Actor:         &outbox.ActorRef{UserID: ownerID, Role: enums.UserRoleMerchant},
			Data: payloads.ProgramDeactivatedEvent{
				ProgramID:     program.ID,
				OwnerID:       ownerID,
				DeactivatedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	program.IsActive = false
	program.UpdatedAt = now
	return FromModel(program), nil
}

func (s *service) PublicView(ctx context.Context, publicCode string) (*PublicProgramDTO, error) {
	publicCode = strings.ToUpper(strings.TrimSpace(publicCode))
	if publicCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "public code required")
	}
	program, err := s.repo.FindByPublicCode(ctx, publicCode)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "load program")
	}
	if !program.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
	}
	return PublicFromModel(program), nil
}

func (s *service) loadOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.LoyaltyProgram, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "program id required")
	}
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDB, err, "load program")
	}
	if program.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "program belongs to another merchant")
	}
	return program, nil
}
