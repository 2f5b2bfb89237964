package drafts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sealcard-backend/internal/programs"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
)

// Step is one screen of the card wizard, numbered from 1.
type Step int

const (
	StepBusinessName Step = iota + 1
	StepBusinessCategory
	StepProgramName
	StepRequiredStamps
	StepRewardDescription
	StepRewardValue
	StepPrimaryColor
	StepSecondaryColor
	StepTextColor
	StepSealShape
	StepBackgroundPattern
	StepLogoURL
	StepWelcomeMessage
	StepTerms
	StepReview
)

// FirstStep and LastStep bound the wizard.
const (
	FirstStep = StepBusinessName
	LastStep  = StepReview
)

var stepFields = map[Step]string{
	StepBusinessName:      programs.FieldBusinessName,
	StepBusinessCategory:  programs.FieldBusinessCategory,
	StepProgramName:       programs.FieldName,
	StepRequiredStamps:    programs.FieldRequiredStamps,
	StepRewardDescription: programs.FieldRewardDescription,
	StepRewardValue:       programs.FieldRewardValue,
	StepPrimaryColor:      programs.FieldPrimaryColor,
	StepSecondaryColor:    programs.FieldSecondaryColor,
	StepTextColor:         programs.FieldTextColor,
	StepSealShape:         programs.FieldSealShape,
	StepBackgroundPattern: programs.FieldBackgroundPattern,
	StepLogoURL:           programs.FieldLogoURL,
	StepWelcomeMessage:    programs.FieldWelcomeMessage,
	StepTerms:             programs.FieldTerms,
	StepReview:            "review",
}

// IsValid reports whether s names a wizard step.
func (s Step) IsValid() bool {
	return s >= FirstStep && s <= LastStep
}

// Field returns the program field edited on this step.
func (s Step) Field() string {
	return stepFields[s]
}

// ParseStep accepts either the step number or its field name.
func ParseStep(raw string) (Step, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if step := Step(n); step.IsValid() {
			return step, nil
		}
		return 0, fmt.Errorf("step %d out of range", n)
	}
	for step, field := range stepFields {
		if field == raw {
			return step, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", raw)
}

// Draft is a merchant's in-progress card. It is stored whole on every change.
type Draft struct {
	OwnerID     uuid.UUID             `json:"owner_id"`
	CurrentStep Step                  `json:"current_step"`
	Input       programs.ProgramInput `json:"input"`
	StartedAt   time.Time             `json:"started_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewDraft starts an empty wizard on the first step.
func NewDraft(ownerID uuid.UUID, now time.Time) *Draft {
	return &Draft{
		OwnerID:     ownerID,
		CurrentStep: FirstStep,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Set decodes value into the field owned by step. The field is stored even
// when it does not validate yet; only Advance enforces validity.
func (d *Draft) Set(step Step, value json.RawMessage) error {
	if !step.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown wizard step")
	}
	if step > d.CurrentStep {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "complete the earlier steps first").
			WithDetails(map[string]any{"current_step": d.CurrentStep, "requested_step": step})
	}
	if step == StepReview {
		return nil
	}
	if err := d.decode(step, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value").
			WithDetails(map[string]string{step.Field(): "has the wrong type"})
	}
	return nil
}

func (d *Draft) decode(step Step, value json.RawMessage) error {
	in := &d.Input
	switch step {
	case StepBusinessName:
		return json.Unmarshal(value, &in.BusinessName)
	case StepBusinessCategory:
		return json.Unmarshal(value, &in.BusinessCategory)
	case StepProgramName:
		return json.Unmarshal(value, &in.Name)
	case StepRequiredStamps:
		return json.Unmarshal(value, &in.RequiredStamps)
	case StepRewardDescription:
		return json.Unmarshal(value, &in.RewardDescription)
	case StepRewardValue:
		if isNull(value) {
			in.RewardValue = nil
			return nil
		}
		var v decimal.Decimal
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		in.RewardValue = &v
		return nil
	case StepPrimaryColor:
		return json.Unmarshal(value, &in.PrimaryColor)
	case StepSecondaryColor:
		return json.Unmarshal(value, &in.SecondaryColor)
	case StepTextColor:
		if isNull(value) {
			in.TextColor = ""
			return nil
		}
		return json.Unmarshal(value, &in.TextColor)
	case StepSealShape:
		return json.Unmarshal(value, &in.SealShape)
	case StepBackgroundPattern:
		if isNull(value) {
			in.BackgroundPattern = ""
			return nil
		}
		return json.Unmarshal(value, &in.BackgroundPattern)
	case StepLogoURL:
		return decodeOptional(value, &in.LogoURL)
	case StepWelcomeMessage:
		return decodeOptional(value, &in.WelcomeMessage)
	case StepTerms:
		return decodeOptional(value, &in.Terms)
	}
	return fmt.Errorf("step %d has no field", step)
}

// Advance moves to the next step once the current step's field is valid.
func (d *Draft) Advance() error {
	if d.CurrentStep >= LastStep {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already on the review step")
	}
	if err := d.validateStep(d.CurrentStep); err != nil {
		return err
	}
	d.CurrentStep++
	return nil
}

// Back moves to the previous step without validation.
func (d *Draft) Back() error {
	if d.CurrentStep <= FirstStep {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already on the first step")
	}
	d.CurrentStep--
	return nil
}

// Program returns the normalized input after checking every step.
func (d *Draft) Program() (programs.ProgramInput, error) {
	in := d.Input.Normalize()
	if err := in.Validate(); err != nil {
		return programs.ProgramInput{}, err
	}
	return in, nil
}

func (d *Draft) validateStep(step Step) error {
	in := d.Input.Normalize()
	var err error
	switch step {
	case StepBusinessName:
		err = programs.ValidateBusinessName(in.BusinessName)
	case StepBusinessCategory:
		err = programs.ValidateBusinessCategory(in.BusinessCategory)
	case StepProgramName:
		err = programs.ValidateProgramName(in.Name)
	case StepRequiredStamps:
		err = programs.ValidateRequiredStamps(in.RequiredStamps)
	case StepRewardDescription:
		err = programs.ValidateRewardDescription(in.RewardDescription)
	case StepRewardValue:
		err = programs.ValidateRewardValue(in.RewardValue)
	case StepPrimaryColor:
		err = programs.ValidateColor(programs.FieldPrimaryColor, in.PrimaryColor)
	case StepSecondaryColor:
		err = programs.ValidateColor(programs.FieldSecondaryColor, in.SecondaryColor)
	case StepTextColor:
		err = programs.ValidateColor(programs.FieldTextColor, in.TextColor)
	case StepSealShape:
		err = programs.ValidateSealShape(in.SealShape)
	case StepBackgroundPattern:
		err = programs.ValidateBackgroundPattern(in.BackgroundPattern)
	case StepLogoURL:
		err = programs.ValidateLogoURL(in.LogoURL)
	case StepWelcomeMessage:
		err = programs.ValidateWelcomeMessage(in.WelcomeMessage)
	case StepTerms:
		err = programs.ValidateTerms(in.Terms)
	}
	if err == nil {
		return nil
	}
	if fe, ok := err.(*programs.FieldError); ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "step is incomplete").
			WithDetails(map[string]string{fe.Field: fe.Reason})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "step is incomplete")
}

func isNull(value json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(value))
	return trimmed == "" || trimmed == "null"
}

func decodeOptional(value json.RawMessage, dst **string) error {
	if isNull(value) {
		*dst = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return err
	}
	*dst = &s
	return nil
}
