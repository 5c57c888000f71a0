package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"voyagepay/internal/database"
	"voyagepay/internal/domain"
	"voyagepay/internal/infrastructure/gateway"
	"voyagepay/internal/repo"
)

type workerEnv struct {
	db       *sql.DB
	intents  repo.IntentRepo
	txns     repo.TransactionRepo
	receipts repo.ReceiptRepo
	cards    gateway.CardGateway
	worker   *ReconciliationWorker
}

func newWorkerEnv(t *testing.T) *workerEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	pgC, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("payments"),
		postgres.WithUsername("payments"),
		postgres.WithPassword("payments"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	connStr, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.ApplySchema(ctx, db))

	env := &workerEnv{
		db:       db,
		intents:  repo.NewIntentRepo(db),
		txns:     repo.NewTransactionRepo(db),
		receipts: repo.NewReceiptRepo(db),
		cards:    gateway.NewSimCardGateway(),
	}
	env.worker = NewReconciliationWorker(
		db, env.intents, env.txns, env.receipts, env.cards,
		zap.NewNop(), time.Minute, 30*time.Minute,
	)
	return env
}

// insertStuckIntent persists a pending intent backdated past the stuck
// threshold, as if its confirm call died mid-flight an hour ago.
func (e *workerEnv) insertStuckIntent(t *testing.T, bookingID, providerIntentID string, method domain.PaymentMethod) *domain.PaymentIntent {
	t.Helper()
	ctx := context.Background()
	stale := time.Now().Add(-time.Hour)
	intent := &domain.PaymentIntent{
		ID:               domain.NewID(domain.IntentIDPrefix),
		BookingID:        bookingID,
		UserID:           "usr_1",
		Amount:           10000,
		Currency:         "USD",
		Method:           method,
		Status:           domain.IntentPending,
		ProviderIntentID: providerIntentID,
		Metadata:         map[string]string{},
		CreatedAt:        stale,
		UpdatedAt:        stale,
	}
	tx, err := e.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, e.intents.Create(ctx, tx, intent))
	require.NoError(t, tx.Commit())
	return intent
}

func (e *workerEnv) intentStatus(t *testing.T, id string) domain.IntentStatus {
	t.Helper()
	found, err := e.intents.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, found)
	return found.Status
}

var reconcileCard = domain.CardDetails{Last4: "4242", Brand: "visa", ExpiryMonth: 12, ExpiryYear: 2030, HolderName: "A TRAVELER"}

func TestReconciliation(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()

	t.Run("recovers a ghost settlement the gateway reports charged", func(t *testing.T) {
		ci, err := env.cards.CreateIntent(ctx, 10000, "USD", reconcileCard)
		require.NoError(t, err)
		_, err = env.cards.ConfirmIntent(ctx, ci.ProviderIntentID, "pm_tok")
		require.NoError(t, err)

		// The processor settled, but our side never heard back.
		intent := env.insertStuckIntent(t, "bk_ghost", ci.ProviderIntentID, domain.CardMethod(reconcileCard))

		require.NoError(t, env.worker.process(ctx))

		assert.Equal(t, domain.IntentCompleted, env.intentStatus(t, intent.ID))

		txns, err := env.txns.ListByIntent(ctx, intent.ID)
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, domain.TxnCharge, txns[0].Type)
		assert.Equal(t, domain.TxnCompleted, txns[0].Status)
		assert.Equal(t, "recovered", txns[0].ProviderTransactionID)
		assert.Equal(t, int64(10000), txns[0].Amount)

		receipt, err := env.receipts.FindByIntent(ctx, intent.ID)
		require.NoError(t, err)
		require.NotNil(t, receipt)
		assert.Regexp(t, `^RCP-\d{8}-[A-Z0-9]{6}$`, receipt.ReceiptNumber)
	})

	t.Run("abandons an intent the gateway never charged", func(t *testing.T) {
		ci, err := env.cards.CreateIntent(ctx, 10000, "USD", reconcileCard)
		require.NoError(t, err)

		intent := env.insertStuckIntent(t, "bk_dead", ci.ProviderIntentID, domain.CardMethod(reconcileCard))

		require.NoError(t, env.worker.process(ctx))

		assert.Equal(t, domain.IntentFailed, env.intentStatus(t, intent.ID))

		txns, err := env.txns.ListByIntent(ctx, intent.ID)
		require.NoError(t, err)
		assert.Empty(t, txns)
		receipt, err := env.receipts.FindByIntent(ctx, intent.ID)
		require.NoError(t, err)
		assert.Nil(t, receipt)
	})

	t.Run("leaves an intent alone when the claim is lost", func(t *testing.T) {
		ci, err := env.cards.CreateIntent(ctx, 10000, "USD", reconcileCard)
		require.NoError(t, err)
		_, err = env.cards.ConfirmIntent(ctx, ci.ProviderIntentID, "pm_tok")
		require.NoError(t, err)

		intent := env.insertStuckIntent(t, "bk_raced", ci.ProviderIntentID, domain.CardMethod(reconcileCard))

		// A concurrent confirm finishes between the stuck scan and the claim.
		_, err = env.db.Exec(`UPDATE payment_intents SET status = 'completed' WHERE id = $1`, intent.ID)
		require.NoError(t, err)

		stale := *intent // the copy the scan returned, still pending
		require.NoError(t, env.worker.reconcile(ctx, &stale))

		assert.Equal(t, domain.IntentCompleted, env.intentStatus(t, intent.ID))
		txns, err := env.txns.ListByIntent(ctx, intent.ID)
		require.NoError(t, err)
		assert.Empty(t, txns)
	})
}
