package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/internal/programs"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

type programCreator interface {
	Create(ctx context.Context, ownerID uuid.UUID, input programs.ProgramInput) (*programs.ProgramDTO, error)
}

// Service drives the card wizard for one merchant at a time.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*DraftDTO, error)
	SetStep(ctx context.Context, ownerID uuid.UUID, step Step, input SetStepInput) (*DraftDTO, error)
	Back(ctx context.Context, ownerID uuid.UUID) (*DraftDTO, error)
	Discard(ctx context.Context, ownerID uuid.UUID) error
	Publish(ctx context.Context, ownerID uuid.UUID) (*programs.ProgramDTO, error)
}

type service struct {
	store    Store
	programs programCreator
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the wizard to its draft store and the program service.
func NewService(store Store, creator programCreator, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if creator == nil {
		return nil, fmt.Errorf("program service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: store, programs: creator, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*DraftDTO, error) {
	draft, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return draftToDTO(draft), nil
}

func (s *service) SetStep(ctx context.Context, ownerID uuid.UUID, step Step, input SetStepInput) (*DraftDTO, error) {
	draft, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(input.Value) > 0 {
		if err := draft.Set(step, input.Value); err != nil {
			return nil, err
		}
	}
	if input.Advance {
		if step != draft.CurrentStep {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only the current step can advance").
				WithDetails(map[string]any{"current_step": draft.CurrentStep})
		}
		if err := draft.Advance(); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, draft); err != nil {
		return nil, err
	}
	return draftToDTO(draft), nil
}

func (s *service) Back(ctx context.Context, ownerID uuid.UUID) (*DraftDTO, error) {
	draft, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := draft.Back(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, draft); err != nil {
		return nil, err
	}
	return draftToDTO(draft), nil
}

func (s *service) Discard(ctx context.Context, ownerID uuid.UUID) error {
	if err := s.store.Delete(ctx, ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard draft")
	}
	return nil
}

// Publish creates the program from a complete draft and clears the draft.
// A failure to clear is logged; the program already exists at that point.
func (s *service) Publish(ctx context.Context, ownerID uuid.UUID) (*programs.ProgramDTO, error) {
	draft, err := s.store.Load(ctx, ownerID)
	if errors.Is(err, ErrDraftNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no draft to publish")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	input, err := draft.Program()
	if err != nil {
		return nil, err
	}
	program, err := s.programs.Create(ctx, ownerID, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, ownerID); err != nil {
		logCtx := s.logg.WithProgramID(ctx, program.ID.String())
		s.logg.Error(logCtx, "clear published draft", err)
	}
	return program, nil
}

// load returns the stored draft or starts a fresh one.
func (s *service) load(ctx context.Context, ownerID uuid.UUID) (*Draft, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	draft, err := s.store.Load(ctx, ownerID)
	if errors.Is(err, ErrDraftNotFound) {
		return NewDraft(ownerID, s.now().UTC()), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	return draft, nil
}

func (s *service) save(ctx context.Context, draft *Draft) error {
	draft.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, draft); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}

// SetStepInput carries one wizard field; Value is the raw JSON for that field.
type SetStepInput struct {
	Value   json.RawMessage `json:"value"`
	Advance bool            `json:"advance"`
}

// DraftDTO is the wizard state returned to the client, with a live preview.
type DraftDTO struct {
	CurrentStep Step                       `json:"current_step"`
	StepField   string                     `json:"step_field"`
	TotalSteps  int                        `json:"total_steps"`
	Input       programs.ProgramInput      `json:"input"`
	Preview     *programs.PublicProgramDTO `json:"preview,omitempty"`
	StartedAt   time.Time                  `json:"started_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

func draftToDTO(d *Draft) *DraftDTO {
	dto := &DraftDTO{
		CurrentStep: d.CurrentStep,
		StepField:   d.CurrentStep.Field(),
		TotalSteps:  int(LastStep),
		Input:       d.Input,
		StartedAt:   d.StartedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Input.RequiredStamps > 0 {
		dto.Preview = programs.PreviewFromInput(d.Input.Normalize())
	}
	return dto
}
