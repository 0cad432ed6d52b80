package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/database"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.CaseRepository())
	assert.NotNil(t, uow.FragmentRepository())
	assert.NotNil(t, uow.SessionRepository())
	assert.NotNil(t, uow.SessionLinkRepository())
	assert.NotNil(t, uow.TelemetryRepository())
	assert.NotNil(t, uow.TrajectoryRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	t.Run("Check Case Repository", func(t *testing.T) {
		count, err := uow.CaseRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Case count: %d", count)
	})

	t.Run("Check Fragment Repository", func(t *testing.T) {
		count, err := uow.FragmentRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Fragment count: %d", count)
	})

	t.Run("Check Transactional Turn Persist", func(t *testing.T) {
		ctx := context.Background()

		patientCase := &entity.Case{
			Id:      uuid.New(),
			Title:   "Integration case",
			Version: 1,
			Truth: policy.CaseTruth{
				DxTarget: []string{"инсомния"},
			},
			Policies:  policy.DefaultPolicies(),
			CreatedAt: time.Now(),
		}
		require.NoError(t, uow.CaseRepository().Create(ctx, patientCase))
		defer uow.CaseRepository().Delete(ctx, patientCase.Id)

		session := &entity.Session{
			Id:        uuid.New(),
			CaseId:    patientCase.Id,
			State:     entity.DefaultSessionState(),
			CreatedAt: time.Now(),
		}
		require.NoError(t, uow.SessionRepository().Create(ctx, session))
		defer gormDB.Exec("DELETE FROM sessions WHERE id = ?", session.Id)

		// Locked update path used by the turn persist phase.
		txUow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, txUow.Begin(ctx))
		defer txUow.Rollback()

		locked, err := txUow.SessionRepository().FindForUpdate(ctx, session.Id)
		require.NoError(t, err)
		require.NotNil(t, locked)
		assert.Equal(t, 0, locked.LastTurnNumber)

		locked.LastTurnNumber = 1
		locked.State.Trust = 0.42
		require.NoError(t, txUow.SessionRepository().Update(ctx, locked))
		require.NoError(t, txUow.Commit())

		reloaded, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: session.Id})
		require.NoError(t, err)
		require.NotNil(t, reloaded)
		assert.Equal(t, 1, reloaded.LastTurnNumber)
		assert.InDelta(t, 0.42, reloaded.State.Trust, 1e-9)
	})
}
