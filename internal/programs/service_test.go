package programs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/internal/testdb"
	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
)

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	r.events = append(r.events, event)
	return nil
}

type stubQR struct {
	url string
	err error
}

func (s stubQR) ProgramQR(ctx context.Context, publicCode string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url + publicCode, nil
}

type lockCountingRepo struct {
	Repository
	locks *int
}

func (r lockCountingRepo) WithTx(tx *gorm.DB) Repository {
	return lockCountingRepo{Repository: r.Repository.WithTx(tx), locks: r.locks}
}

func (r lockCountingRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.LoyaltyProgram, error) {
	*r.locks++
	return r.Repository.FindForUpdate(ctx, id)
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	emitter *recordingEmitter
	owner   uuid.UUID
}

func newFixture(t *testing.T, qr qrBuilder, codes ...string) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	owner := testdb.MustCreateUser(t, conn, enums.UserRoleMerchant)
	emitter := &recordingEmitter{}

	params := ServiceParams{
		Repository:   NewRepository(conn),
		Tx:           db.NewFromGorm(conn),
		Outbox:       emitter,
		QR:           qr,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		CodeAttempts: 3,
	}
	if len(codes) > 0 {
		next := 0
		params.GenerateCode = func(int) (string, error) {
			code := codes[next%len(codes)]
			next++
			return code, nil
		}
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, emitter: emitter, owner: owner.ID}
}

func validInput() ProgramInput {
	value := decimal.RequireFromString("4.50")
	welcome := "  Thanks for joining!  "
	return ProgramInput{
		BusinessName:      " Corner Cafe ",
		BusinessCategory:  enums.BusinessCategoryCafe,
		Name:              "Coffee Club",
		RequiredStamps:    10,
		RewardDescription: "Free latte",
		RewardValue:       &value,
		PrimaryColor:      "#1a237e",
		SecondaryColor:    "#ffeb3b",
		SealShape:         enums.SealShapeCup,
		WelcomeMessage:    &welcome,
	}
}

func TestCreatePublishesProgramWithQRCode(t *testing.T) {
	f := newFixture(t, stubQR{url: "https://qr.test/"})
	ctx := context.Background()

	program, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)
	require.Equal(t, "Corner Cafe", program.BusinessName)
	require.Equal(t, "#1A237E", program.PrimaryColor)
	require.Equal(t, "#FFFFFF", program.TextColor, "text color derives from primary contrast")
	require.Equal(t, enums.BackgroundPatternNone, program.BackgroundPattern)
	require.Len(t, program.PublicCode, publicCodeLength)
	require.NotNil(t, program.QRCodeURL)
	require.Equal(t, "https://qr.test/"+program.PublicCode, *program.QRCodeURL)
	require.Equal(t, "Thanks for joining!", *program.WelcomeMessage)

	require.Len(t, f.emitter.events, 1)
	require.Equal(t, enums.EventProgramPublished, f.emitter.events[0].EventType)
	require.Equal(t, program.ID, f.emitter.events[0].AggregateID)

	stored, err := f.svc.Get(ctx, program.ID, f.owner)
	require.NoError(t, err)
	require.Equal(t, *program.QRCodeURL, *stored.QRCodeURL)
	require.True(t, stored.RewardValue.Equal(decimal.RequireFromString("4.5")))
}

func TestCreateSurvivesQRFailure(t *testing.T) {
	f := newFixture(t, stubQR{err: errors.New("qr down")})

	program, err := f.svc.Create(context.Background(), f.owner, validInput())
	require.NoError(t, err)
	require.Nil(t, program.QRCodeURL)
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	f := newFixture(t, nil)
	input := validInput()
	input.RequiredStamps = 0
	input.PrimaryColor = "blue"
	input.SealShape = "triangle"

	_, err := f.svc.Create(context.Background(), f.owner, input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, FieldRequiredStamps)
	require.Contains(t, details, FieldPrimaryColor)
	require.Contains(t, details, FieldSealShape)
	require.Empty(t, f.emitter.events)
}

func TestCreateExhaustsPublicCodes(t *testing.T) {
	f := newFixture(t, nil, "TAKEN1")
	_, err := f.svc.Create(context.Background(), f.owner, validInput())
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.owner, validInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeCodeGenerationExhausted, typed.Code())
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t, nil)
	program, err := f.svc.Create(context.Background(), f.owner, validInput())
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), program.ID, uuid.New())
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.Get(context.Background(), uuid.New(), f.owner)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateLocksRequiredStampsOnceCustomersJoin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	program, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)

	stamps := 8
	name := "Coffee Club Plus"
	updated, err := f.svc.Update(ctx, program.ID, f.owner, UpdateProgramInput{RequiredStamps: &stamps, Name: &name})
	require.NoError(t, err)
	require.Equal(t, 8, updated.RequiredStamps)
	require.Equal(t, "Coffee Club Plus", updated.Name)

	customer := testdb.MustCreateUser(t, f.conn, enums.UserRoleCustomer)
	require.NoError(t, f.conn.Exec(
		`INSERT INTO customer_ledgers (id, program_id, customer_id, card_code, current_stamps, joined_at) VALUES (?, ?, ?, ?, 1, CURRENT_TIMESTAMP)`,
		uuid.NewString(), program.ID.String(), customer.ID.String(), "CARD0001",
	).Error)

	stamps = 12
	_, err = f.svc.Update(ctx, program.ID, f.owner, UpdateProgramInput{RequiredStamps: &stamps})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	reward := "Free pastry"
	updated, err = f.svc.Update(ctx, program.ID, f.owner, UpdateProgramInput{RewardDescription: &reward})
	require.NoError(t, err)
	require.Equal(t, 8, updated.RequiredStamps)
	require.Equal(t, "Free pastry", updated.RewardDescription)
}

func TestUpdateLocksProgramRowForStampChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	program, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)

	locks := 0
	svc, err := NewService(ServiceParams{
		Repository: lockCountingRepo{Repository: NewRepository(f.conn), locks: &locks},
		Tx:         db.NewFromGorm(f.conn),
		Outbox:     f.emitter,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.Update(ctx, program.ID, f.owner, UpdateProgramInput{Name: &name})
	require.NoError(t, err)
	require.Zero(t, locks)

	stamps := 6
	updated, err := svc.Update(ctx, program.ID, f.owner, UpdateProgramInput{RequiredStamps: &stamps})
	require.NoError(t, err)
	require.Equal(t, 1, locks)
	require.Equal(t, 6, updated.RequiredStamps)
	require.Equal(t, "Renamed", updated.Name)
}

func TestPublicViewNormalizesCode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	program, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)

	view, err := f.svc.PublicView(ctx, " "+strings.ToLower(program.PublicCode)+"\n")
	require.NoError(t, err)
	require.Equal(t, program.PublicCode, view.PublicCode)

	_, err = f.svc.PublicView(ctx, "   ")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeactivateHidesPublicViewAndEmitsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	program, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)

	view, err := f.svc.PublicView(ctx, program.PublicCode)
	require.NoError(t, err)
	require.Equal(t, Grid{Rows: 2, Columns: 6}, view.Grid)
	require.Equal(t, "#FFFFFF", view.ContrastTextColor)

	out, err := f.svc.Deactivate(ctx, program.ID, f.owner)
	require.NoError(t, err)
	require.False(t, out.IsActive)

	_, err = f.svc.Deactivate(ctx, program.ID, f.owner)
	require.NoError(t, err)

	deactivations := 0
	for _, ev := range f.emitter.events {
		if ev.EventType == enums.EventProgramDeactivated {
			deactivations++
		}
	}
	require.Equal(t, 1, deactivations)

	_, err = f.svc.PublicView(ctx, program.PublicCode)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	name := "Too late"
	_, err = f.svc.Update(ctx, program.ID, f.owner, UpdateProgramInput{Name: &name})
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestListMineReturnsOwnPrograms(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.owner, validInput())
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	other, err := f.svc.ListMine(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, other)
}
