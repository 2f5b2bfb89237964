package ledgers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/internal/programs"
	"github.com/angelmondragon/sealcard-backend/internal/testdb"
	"github.com/angelmondragon/sealcard-backend/internal/users"
	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/db"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	"github.com/angelmondragon/sealcard-backend/pkg/metrics"
	"github.com/angelmondragon/sealcard-backend/pkg/outbox"
	"github.com/angelmondragon/sealcard-backend/pkg/pagination"
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

func (r *recordingEmitter) types() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubQR struct {
	err error
}

func (s stubQR) CardQR(ctx context.Context, publicCode, cardCode string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://qr.test/" + publicCode + "/" + cardCode, nil
}

// racingRepo bumps the stored version before each swap to simulate a
// concurrent writer winning the race.
type racingRepo struct {
	Repository
	races *int
}

func (r racingRepo) WithTx(tx *gorm.DB) Repository {
	return racingTxRepo{Repository: r.Repository.WithTx(tx), tx: tx, races: r.races}
}

type racingTxRepo struct {
	Repository
	tx    *gorm.DB
	races *int
}

func (r racingTxRepo) CompareAndSwap(ctx context.Context, ledger *models.CustomerLedger, expectedVersion int64) (bool, error) {
	if *r.races > 0 {
		*r.races--
		if err := r.tx.Exec("UPDATE customer_ledgers SET version = version + 1 WHERE id = ?", ledger.ID).Error; err != nil {
			return false, err
		}
	}
	return r.Repository.CompareAndSwap(ctx, ledger, expectedVersion)
}

// lockHookRepo edits the program returned by the share-locked read, standing
// in for a program change that committed just before the join took the lock.
type lockHookRepo struct {
	Repository
	onLock func(*models.LoyaltyProgram)
}

func (r lockHookRepo) WithTx(tx *gorm.DB) Repository {
	return lockHookRepo{Repository: r.Repository.WithTx(tx), onLock: r.onLock}
}

func (r lockHookRepo) LockProgram(ctx context.Context, programID uuid.UUID) (*models.LoyaltyProgram, error) {
	program, err := r.Repository.LockProgram(ctx, programID)
	if err == nil {
		r.onLock(program)
	}
	return program, err
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	emitter  *recordingEmitter
	registry *prometheus.Registry
	merchant *models.User
	customer *models.User
	program  *models.LoyaltyProgram
}

type fixtureOption func(*ServiceParams)

func withCodes(codes ...string) fixtureOption {
	return func(p *ServiceParams) {
		next := 0
		p.GenerateCode = func(int) (string, error) {
			code := codes[next%len(codes)]
			next++
			return code, nil
		}
	}
}

func withRaces(n int) fixtureOption {
	return func(p *ServiceParams) {
		p.Repository = racingRepo{Repository: p.Repository, races: &n}
	}
}

func withLockHook(onLock func(*models.LoyaltyProgram)) fixtureOption {
	return func(p *ServiceParams) {
		p.Repository = lockHookRepo{Repository: p.Repository, onLock: onLock}
	}
}

func withQR(qr cardQR) fixtureOption {
	return func(p *ServiceParams) { p.QR = qr }
}

func newFixture(t *testing.T, requiredStamps int, opts ...fixtureOption) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	merchant := testdb.MustCreateUser(t, conn, enums.UserRoleMerchant)
	customer := testdb.MustCreateUser(t, conn, enums.UserRoleCustomer)
	program := testdb.MustCreateProgram(t, conn, merchant.ID, requiredStamps)
	emitter := &recordingEmitter{}
	registry := prometheus.NewRegistry()

	params := ServiceParams{
		Repository: NewRepository(conn),
		Programs:   programs.NewRepository(conn),
		Customers:  users.NewRepository(conn),
		Tx:         db.NewFromGorm(conn),
		Outbox:     emitter,
		QR:         stubQR{},
		Metrics:    metrics.NewLedgerMetrics(registry),
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Config:     config.LedgerConfig{MaxCASRetries: 3, CodeAttempts: 3, CodeLength: 8},
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return &fixture{
		conn:     conn,
		svc:      svc,
		emitter:  emitter,
		registry: registry,
		merchant: merchant,
		customer: customer,
		program:  program,
	}
}

func (f *fixture) join(t *testing.T) *JoinResult {
	t.Helper()
	res, err := f.svc.Join(context.Background(), JoinInput{
		ProgramID:     f.program.ID,
		CustomerID:    f.customer.ID,
		AgreedToTerms: true,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) apply(t *testing.T, ledgerID uuid.UUID, delta int) *ApplySealsResult {
	t.Helper()
	res, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: ledgerID,
		ActorID:  f.merchant.ID,
		Delta:    delta,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) countTransactions(t *testing.T, ledgerID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.SealTransaction{}).Where("ledger_id = ?", ledgerID).Count(&count).Error)
	return count
}

// counter reads a counter sample by metric name and optional outcome label.
func (f *fixture) counter(t *testing.T, name, outcome string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if outcome == "" {
				return metric.GetCounter().GetValue()
			}
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
	return typed
}

func TestJoinAppliesWelcomeStamp(t *testing.T) {
	f := newFixture(t, 10, withCodes("CARD2345"))

	res := f.join(t)
	require.Equal(t, "CARD2345", res.CardCode)
	require.True(t, res.WelcomeStampApplied)
	require.Equal(t, 1, res.CurrentStamps)
	require.Equal(t, 0, res.TotalRewardsEarned)
	require.Equal(t, "https://qr.test/"+f.program.PublicCode+"/CARD2345", res.QRCodeURL)

	require.EqualValues(t, 1, f.countTransactions(t, res.LedgerID))
	var txn models.SealTransaction
	require.NoError(t, f.conn.Where("ledger_id = ?", res.LedgerID).First(&txn).Error)
	require.Equal(t, enums.SealKindWelcome, txn.Kind)
	require.Equal(t, 1, txn.SealsGiven)
	require.NotNil(t, txn.Notes)
	require.Equal(t, "welcome", *txn.Notes)

	require.Equal(t, []enums.OutboxEventType{enums.EventCustomerJoined}, f.emitter.types())
	require.Equal(t, float64(1), f.counter(t, "sealcard_program_joins_total", ""))
}

func TestJoinTwiceRejected(t *testing.T) {
	f := newFixture(t, 10, withCodes("CARD2345", "CARD6789"))
	f.join(t)

	_, err := f.svc.Join(context.Background(), JoinInput{
		ProgramID:     f.program.ID,
		CustomerID:    f.customer.ID,
		AgreedToTerms: true,
	})
	requireCode(t, err, pkgerrors.CodeAlreadyParticipating)

	var count int64
	require.NoError(t, f.conn.Model(&models.CustomerLedger{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestJoinSingleStampProgramEarnsRewardImmediately(t *testing.T) {
	f := newFixture(t, 1)

	res := f.join(t)
	require.Equal(t, 0, res.CurrentStamps)
	require.Equal(t, 1, res.TotalRewardsEarned)
}

func TestJoinRequiresTerms(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.svc.Join(context.Background(), JoinInput{ProgramID: f.program.ID, CustomerID: f.customer.ID})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestJoinRejectsMerchantAccount(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.svc.Join(context.Background(), JoinInput{
		ProgramID:     f.program.ID,
		CustomerID:    f.merchant.ID,
		AgreedToTerms: true,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestJoinInactiveProgram(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, f.conn.Model(&models.LoyaltyProgram{}).Where("id = ?", f.program.ID).Update("is_active", false).Error)

	_, err := f.svc.Join(context.Background(), JoinInput{
		ProgramID:     f.program.ID,
		CustomerID:    f.customer.ID,
		AgreedToTerms: true,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestJoinCodeGenerationExhausted(t *testing.T) {
	f := newFixture(t, 10, withCodes("TAKEN234"))
	f.join(t)

	other := testdb.MustCreateUser(t, f.conn, enums.UserRoleCustomer)
	_, err := f.svc.Join(context.Background(), JoinInput{
		ProgramID:     f.program.ID,
		CustomerID:    other.ID,
		AgreedToTerms: true,
	})
	requireCode(t, err, pkgerrors.CodeCodeGenerationExhausted)
}

func TestJoinQRFailureStillJoins(t *testing.T) {
	f := newFixture(t, 10, withQR(stubQR{err: errors.New("qr offline")}))

	res := f.join(t)
	require.Empty(t, res.QRCodeURL)
	require.NotEqual(t, uuid.Nil, res.LedgerID)
}

func TestJoinComputesWelcomeFromLockedProgram(t *testing.T) {
	f := newFixture(t, 10, withLockHook(func(p *models.LoyaltyProgram) { p.RequiredStamps = 1 }))

	res := f.join(t)
	require.Equal(t, 0, res.CurrentStamps)
	require.Equal(t, 1, res.TotalRewardsEarned)

	var txn models.SealTransaction
	require.NoError(t, f.conn.Where("ledger_id = ?", res.LedgerID).First(&txn).Error)
	require.Equal(t, 1, txn.RewardsAfter)
}

func TestJoinProgramDeactivatedBeforeLock(t *testing.T) {
	f := newFixture(t, 10, withLockHook(func(p *models.LoyaltyProgram) { p.IsActive = false }))

	_, err := f.svc.Join(context.Background(), JoinInput{
		ProgramID:     f.program.ID,
		CustomerID:    f.customer.ID,
		AgreedToTerms: true,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	var ledgers int64
	require.NoError(t, f.conn.Model(&models.CustomerLedger{}).Count(&ledgers).Error)
	require.Zero(t, ledgers)
	require.Empty(t, f.emitter.events)
}

func TestApplySealsRollsOverIntoReward(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	f.apply(t, joined.LedgerID, 8)

	res := f.apply(t, joined.LedgerID, 1)
	require.Equal(t, 0, res.Ledger.CurrentStamps)
	require.Equal(t, 1, res.Ledger.TotalRewardsEarned)
	require.Equal(t, 1, res.RewardsEarnedThisCall)
	require.Equal(t, 10, res.Ledger.Remaining)
	require.EqualValues(t, 3, res.Ledger.Version)

	require.Equal(t, []enums.OutboxEventType{
		enums.EventCustomerJoined,
		enums.EventSealsApplied,
		enums.EventSealsApplied,
		enums.EventRewardEarned,
	}, f.emitter.types())
	require.Equal(t, float64(1), f.counter(t, "sealcard_rewards_earned_total", ""))
}

func TestApplySealsRejectsOverCapacity(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	f.apply(t, joined.LedgerID, 7)

	_, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: joined.LedgerID,
		ActorID:  f.merchant.ID,
		Delta:    5,
	})
	typed := requireCode(t, err, pkgerrors.CodeExceedsCapacity)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, 8, details["current_stamps"])
	require.Equal(t, 2, details["remaining"])

	require.EqualValues(t, 2, f.countTransactions(t, joined.LedgerID))
	ledger, err := f.svc.Get(context.Background(), joined.LedgerID, f.merchant.ID)
	require.NoError(t, err)
	require.Equal(t, 8, ledger.CurrentStamps)
	require.Equal(t, float64(1), f.counter(t, "sealcard_seal_applications_total", metrics.OutcomeExceedsCapacity))
}

func TestApplySealsRemoval(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	f.apply(t, joined.LedgerID, 1)

	res := f.apply(t, joined.LedgerID, -2)
	require.Equal(t, 0, res.Ledger.CurrentStamps)

	_, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: joined.LedgerID,
		ActorID:  f.merchant.ID,
		Delta:    -1,
	})
	requireCode(t, err, pkgerrors.CodeExceedsRemoval)
}

func TestApplySealsZeroDelta(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)

	_, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: joined.LedgerID,
		ActorID:  f.merchant.ID,
	})
	requireCode(t, err, pkgerrors.CodeInvalidDelta)
}

func TestApplySealsForbiddenForOtherMerchant(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	stranger := testdb.MustCreateUser(t, f.conn, enums.UserRoleMerchant)

	_, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: joined.LedgerID,
		ActorID:  stranger.ID,
		Delta:    1,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestApplySealsUnknownLedger(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: uuid.New(),
		ActorID:  f.merchant.ID,
		Delta:    1,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestApplySealsRetriesLostRace(t *testing.T) {
	f := newFixture(t, 10, withRaces(2))
	joined := f.join(t)

	res := f.apply(t, joined.LedgerID, 2)
	require.Equal(t, 3, res.Ledger.CurrentStamps)
	require.EqualValues(t, 2, res.Ledger.Version, "losing attempts roll back with their transaction")
	require.Equal(t, float64(2), f.counter(t, "sealcard_ledger_cas_retries_total", ""))
	require.EqualValues(t, 2, f.countTransactions(t, joined.LedgerID))
}

func TestApplySealsGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t, 10, withRaces(10))
	joined := f.join(t)

	_, err := f.svc.ApplySeals(context.Background(), ApplySealsInput{
		LedgerID: joined.LedgerID,
		ActorID:  f.merchant.ID,
		Delta:    1,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.EqualValues(t, 1, f.countTransactions(t, joined.LedgerID))
}

func TestFinalizeRewardClearsCard(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	f.apply(t, joined.LedgerID, 9)
	f.apply(t, joined.LedgerID, 4)

	res, err := f.svc.FinalizeReward(context.Background(), joined.LedgerID, f.merchant.ID)
	require.NoError(t, err)
	require.Equal(t, 4, res.StampsCleared)
	require.Equal(t, 0, res.Ledger.CurrentStamps)
	require.Equal(t, 2, res.Ledger.TotalRewardsEarned)

	var txn models.SealTransaction
	require.NoError(t, f.conn.Where("id = ?", res.TransactionID).First(&txn).Error)
	require.Equal(t, enums.SealKindRewardRedeemed, txn.Kind)
	require.Equal(t, 0, txn.SealsGiven)
	require.Equal(t, enums.EventRewardRedeemed, f.emitter.events[len(f.emitter.events)-1].EventType)
}

func TestDeactivateIsIdempotentAndBlocksSeals(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	f.apply(t, joined.LedgerID, 3)
	ctx := context.Background()
	txnsBefore := f.countTransactions(t, joined.LedgerID)

	first, err := f.svc.Deactivate(ctx, joined.LedgerID, f.merchant.ID)
	require.NoError(t, err)
	require.False(t, first.IsActive)
	require.Equal(t, 4, first.CurrentStamps)

	second, err := f.svc.Deactivate(ctx, joined.LedgerID, f.merchant.ID)
	require.NoError(t, err)
	require.Equal(t, first.Version, second.Version)
	require.Equal(t, 4, second.CurrentStamps)

	var stored models.CustomerLedger
	require.NoError(t, f.conn.Where("id = ?", joined.LedgerID).First(&stored).Error)
	require.Equal(t, 4, stored.CurrentStamps)
	require.False(t, stored.IsActive)
	require.Equal(t, txnsBefore, f.countTransactions(t, joined.LedgerID))

	_, err = f.svc.ApplySeals(ctx, ApplySealsInput{LedgerID: joined.LedgerID, ActorID: f.merchant.ID, Delta: 1})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, txnsBefore, f.countTransactions(t, joined.LedgerID))

	deactivations := 0
	for _, e := range f.emitter.events {
		if e.EventType == enums.EventLedgerDeactivated {
			deactivations++
		}
	}
	require.Equal(t, 1, deactivations)

	wallet, err := f.svc.ListForCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Empty(t, wallet)
}

func TestSealLogCarriesLedgerVersion(t *testing.T) {
	f := newFixture(t, 10, withRaces(1))
	joined := f.join(t)
	applied := f.apply(t, joined.LedgerID, 2)

	var rows []models.SealTransaction
	require.NoError(t, f.conn.Where("ledger_id = ?", joined.LedgerID).Order("ledger_version").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, int64(1), rows[0].LedgerVersion)
	require.Equal(t, enums.SealKindWelcome, rows[0].Kind)
	require.Equal(t, applied.Ledger.Version, rows[1].LedgerVersion)
	require.Equal(t, enums.SealKindGrant, rows[1].Kind)
}

func TestReconcileReplaysInVersionOrder(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	ctx := context.Background()

	// Same timestamp and ids sorting against the version order.
	at := time.Now().UTC().Add(time.Minute).Truncate(time.Microsecond)
	entries := []models.SealTransaction{
		{ID: uuid.MustParse("ffffffff-0000-4000-8000-000000000000"), LedgerVersion: 2, Kind: enums.SealKindGrant, SealsGiven: 4, StampsAfter: 5},
		{ID: uuid.MustParse("00000000-0000-4000-8000-000000000001"), LedgerVersion: 3, Kind: enums.SealKindRemoval, SealsGiven: -5, StampsAfter: 0},
	}
	for i := range entries {
		entries[i].LedgerID = joined.LedgerID
		entries[i].ProgramID = f.program.ID
		entries[i].ActorID = f.merchant.ID
		entries[i].CreatedAt = at
	}
	require.NoError(t, f.conn.Create(&entries).Error)
	require.NoError(t, f.conn.Model(&models.CustomerLedger{}).
		Where("id = ?", joined.LedgerID).
		Updates(map[string]any{"current_stamps": 0, "version": 3}).Error)

	report, err := f.svc.Reconcile(ctx, joined.LedgerID, false)
	require.NoError(t, err)
	require.Equal(t, 3, report.Entries)
	require.False(t, report.Mismatch)
	require.Equal(t, 0, report.ReplayedStamps)
}

func TestGetAllowsOwnerAndCustomerOnly(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, joined.LedgerID, f.customer.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, joined.LedgerID, f.merchant.ID)
	require.NoError(t, err)

	stranger := testdb.MustCreateUser(t, f.conn, enums.UserRoleCustomer)
	_, err = f.svc.Get(ctx, joined.LedgerID, stranger.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.GetByCode(ctx, joined.CardCode, f.customer.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	byCode, err := f.svc.GetByCode(ctx, " "+joined.CardCode+" ", f.merchant.ID)
	require.NoError(t, err)
	require.Equal(t, joined.LedgerID, byCode.ID)
}

func TestListForCustomerIncludesProgram(t *testing.T) {
	f := newFixture(t, 10)
	f.join(t)

	wallet, err := f.svc.ListForCustomer(context.Background(), f.customer.ID)
	require.NoError(t, err)
	require.Len(t, wallet, 1)
	require.NotNil(t, wallet[0].Program)
	require.Equal(t, f.program.PublicCode, wallet[0].Program.PublicCode)
	require.Equal(t, 1, wallet[0].Ledger.CurrentStamps)
}

func TestListTransactionsPaginates(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	for i := 0; i < 4; i++ {
		f.apply(t, joined.LedgerID, 1)
	}
	ctx := context.Background()

	first, err := f.svc.ListTransactions(ctx, joined.LedgerID, f.customer.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, 5, first.Items[0].StampsAfter, "newest first")

	second, err := f.svc.ListTransactions(ctx, joined.LedgerID, f.customer.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.Empty(t, second.NextCursor)
	require.Equal(t, enums.SealKindWelcome, second.Items[1].Kind)
}

func TestListForProgramRequiresOwner(t *testing.T) {
	f := newFixture(t, 10)
	f.join(t)
	ctx := context.Background()

	page, err := f.svc.ListForProgram(ctx, f.program.ID, f.merchant.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	_, err = f.svc.ListForProgram(ctx, f.program.ID, f.customer.ID, pagination.Params{})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t, 10)
	joined := f.join(t)
	f.apply(t, joined.LedgerID, 3)
	ctx := context.Background()

	clean, err := f.svc.Reconcile(ctx, joined.LedgerID, true)
	require.NoError(t, err)
	require.False(t, clean.Mismatch)
	require.False(t, clean.Repaired)

	require.NoError(t, f.conn.Model(&models.CustomerLedger{}).
		Where("id = ?", joined.LedgerID).
		Update("current_stamps", 7).Error)

	report, err := f.svc.Reconcile(ctx, joined.LedgerID, false)
	require.NoError(t, err)
	require.True(t, report.Mismatch)
	require.False(t, report.Repaired)
	require.Equal(t, 7, report.CachedStamps)
	require.Equal(t, 4, report.ReplayedStamps)

	repaired, err := f.svc.Reconcile(ctx, joined.LedgerID, true)
	require.NoError(t, err)
	require.True(t, repaired.Repaired)

	ledger, err := f.svc.Get(ctx, joined.LedgerID, f.merchant.ID)
	require.NoError(t, err)
	require.Equal(t, 4, ledger.CurrentStamps)

	touched, err := f.svc.RecentlyTouched(ctx, ledger.UpdatedAt.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Contains(t, touched, joined.LedgerID)
}
