package custody

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"staffops/internal/ledger"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/requestcontext"
)

type EngineSuite struct {
	suite.Suite
	store  *ledger.InMemoryStore
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = ledger.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var err error
	s.engine, err = NewEngine(s.store, ledger.NewKeyLock(), WithLogger(logger))
	s.Require().NoError(err)
}

// asCaller pins both the acting user and the clock.
func asCaller(userID id.UserID, t time.Time) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), userID, id.RoleOperations)
	return requestcontext.WithTime(ctx, t)
}

var baseTime = time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

func (s *EngineSuite) register(assetID id.AssetID) *Record {
	record, err := s.engine.Register(asCaller("ops-1", baseTime), RegisterInput{
		AssetID:      assetID,
		HolderName:   "Acme Exports Pvt Ltd",
		SerialNumber: "SN-4411",
		ExpiresAt:    "2027-03-31",
	})
	s.Require().NoError(err)
	return record
}

func (s *EngineSuite) TestRegister() {
	s.Run("new asset starts with the company", func() {
		record := s.register("cert-001")
		s.Equal(MovementIn, record.CurrentStatus)
		s.Equal(LocationWithCompany, record.CurrentLocation)
		s.Empty(record.MovementLog)
		s.Equal("Acme Exports Pvt Ltd", record.HolderName)
	})

	s.Run("duplicate registration conflicts", func() {
		_, err := s.engine.Register(asCaller("ops-1", baseTime), RegisterInput{
			AssetID: "cert-001", HolderName: "Acme Exports Pvt Ltd",
		})
		s.ErrorIs(err, ErrAssetExists)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("holder name required", func() {
		_, err := s.engine.Register(asCaller("ops-1", baseTime), RegisterInput{AssetID: "cert-002"})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *EngineSuite) TestRecordMovement() {
	s.register("cert-010")

	s.Run("OUT moves the asset to the client", func() {
		record, err := s.engine.RecordMovement(asCaller("ops-1", baseTime), "cert-010", MovementInput{
			Type: MovementOut, PersonName: "Ravi Kumar", Notes: "GST filing",
		})
		s.Require().NoError(err)
		s.Equal(MovementOut, record.CurrentStatus)
		s.Equal(LocationWithClient, record.CurrentLocation)
		s.Require().Len(record.MovementLog, 1)
		entry := record.MovementLog[0]
		s.NotEmpty(entry.ID)
		s.Equal("Ravi Kumar", entry.PersonName)
		s.Equal(id.UserID("ops-1"), entry.RecordedBy)
		s.Equal(baseTime, entry.Timestamp)
	})

	s.Run("IN brings it back", func() {
		record, err := s.engine.RecordMovement(asCaller("ops-2", baseTime.Add(time.Hour)), "cert-010", MovementInput{
			Type: MovementIn, PersonName: "Ravi Kumar",
		})
		s.Require().NoError(err)
		s.Equal(MovementIn, record.CurrentStatus)
		s.Equal(LocationWithCompany, record.CurrentLocation)
		s.Len(record.MovementLog, 2)
	})

	s.Run("status always equals the tail entry", func() {
		record, err := s.engine.Get(context.Background(), "cert-010")
		s.Require().NoError(err)
		s.Equal(record.MovementLog[len(record.MovementLog)-1].Type, record.CurrentStatus)
	})

	s.Run("unknown asset", func() {
		_, err := s.engine.RecordMovement(asCaller("ops-1", baseTime), "cert-missing", MovementInput{
			Type: MovementOut, PersonName: "Ravi Kumar",
		})
		s.ErrorIs(err, ErrAssetNotFound)
	})

	s.Run("bad movement type", func() {
		_, err := s.engine.RecordMovement(asCaller("ops-1", baseTime), "cert-010", MovementInput{
			Type: "LOST", PersonName: "Ravi Kumar",
		})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("person name required", func() {
		_, err := s.engine.RecordMovement(asCaller("ops-1", baseTime), "cert-010", MovementInput{
			Type: MovementOut,
		})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *EngineSuite) TestConcurrentMovementsAllLand() {
	s.register("cert-race")
	ctx := asCaller("ops-1", baseTime)

	const writers = 10
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.engine.RecordMovement(ctx, "cert-race", MovementInput{
				Type: MovementOut, PersonName: "Courier",
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	record, err := s.engine.Get(context.Background(), "cert-race")
	s.Require().NoError(err)
	s.Require().Len(record.MovementLog, writers, "no append may be lost")

	seen := make(map[id.MovementID]bool, writers)
	for _, entry := range record.MovementLog {
		s.False(seen[entry.ID], "movement ids must be unique")
		seen[entry.ID] = true
	}
}

func (s *EngineSuite) TestAmendMovement() {
	s.register("cert-020")
	first, err := s.engine.RecordMovement(asCaller("ops-1", baseTime), "cert-020", MovementInput{
		Type: MovementOut, PersonName: "Wrong Name", Notes: "pickup",
	})
	s.Require().NoError(err)
	_, err = s.engine.RecordMovement(asCaller("ops-1", baseTime.Add(time.Hour)), "cert-020", MovementInput{
		Type: MovementIn, PersonName: "Ravi Kumar",
	})
	s.Require().NoError(err)
	firstID := first.MovementLog[0].ID

	s.Run("corrects fields and stamps the editor", func() {
		editTime := baseTime.Add(2 * time.Hour)
		record, err := s.engine.AmendMovement(asCaller("admin-1", editTime), "cert-020", firstID, AmendInput{
			PersonName: "Ravi Kumar",
		})
		s.Require().NoError(err)
		entry := record.MovementLog[0]
		s.Equal("Ravi Kumar", entry.PersonName)
		s.Equal("pickup", entry.Notes, "untouched fields survive")
		s.Equal(MovementOut, entry.Type)
		s.Equal(baseTime, entry.Timestamp, "original timestamp is preserved")
		s.Equal(id.UserID("admin-1"), entry.EditedBy)
		s.Require().NotNil(entry.EditedAt)
		s.Equal(editTime, *entry.EditedAt)
	})

	s.Run("amending a non-tail entry leaves the projection on the tail", func() {
		record, err := s.engine.AmendMovement(asCaller("admin-1", baseTime), "cert-020", firstID, AmendInput{
			Type: MovementIn,
		})
		s.Require().NoError(err)
		s.Equal(MovementIn, record.MovementLog[0].Type)
		s.Equal(MovementIn, record.CurrentStatus, "tail is IN, so status stays IN")
		s.Equal(LocationWithCompany, record.CurrentLocation)
	})

	s.Run("amending the tail type moves the projection", func() {
		tailID := s.mustGet("cert-020").MovementLog[1].ID
		record, err := s.engine.AmendMovement(asCaller("admin-1", baseTime), "cert-020", tailID, AmendInput{
			Type: MovementOut,
		})
		s.Require().NoError(err)
		s.Equal(MovementOut, record.CurrentStatus)
		s.Equal(LocationWithClient, record.CurrentLocation)
	})

	s.Run("notes can be cleared explicitly", func() {
		record, err := s.engine.AmendMovement(asCaller("admin-1", baseTime), "cert-020", firstID, AmendInput{
			Notes: "", NotesSet: true,
		})
		s.Require().NoError(err)
		s.Empty(record.MovementLog[0].Notes)
	})

	s.Run("unknown movement id", func() {
		_, err := s.engine.AmendMovement(asCaller("admin-1", baseTime), "cert-020", "no-such-entry", AmendInput{})
		s.ErrorIs(err, ErrMovementNotFound)
	})

	s.Run("unknown asset", func() {
		_, err := s.engine.AmendMovement(asCaller("admin-1", baseTime), "cert-missing", firstID, AmendInput{})
		s.ErrorIs(err, ErrAssetNotFound)
	})
}

func (s *EngineSuite) mustGet(assetID id.AssetID) *Record {
	record, err := s.engine.Get(context.Background(), assetID)
	s.Require().NoError(err)
	return record
}

func (s *EngineSuite) TestGetAndList() {
	s.Run("get unknown asset", func() {
		_, err := s.engine.Get(context.Background(), "cert-none")
		s.ErrorIs(err, ErrAssetNotFound)
	})

	s.Run("list sorts by asset id", func() {
		s.register("cert-b")
		s.register("cert-a")
		records, err := s.engine.List(context.Background())
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal(id.AssetID("cert-a"), records[0].ID)
		s.Equal(id.AssetID("cert-b"), records[1].ID)
	})
}

func (s *EngineSuite) TestRecordSurvivesRoundTrip() {
	s.register("cert-rt")
	_, err := s.engine.RecordMovement(asCaller("ops-1", baseTime), "cert-rt", MovementInput{
		Type: MovementOut, PersonName: "Ravi Kumar", Notes: "renewal visit",
	})
	s.Require().NoError(err)

	record := s.mustGet("cert-rt")
	s.Equal(MovementOut, record.CurrentStatus)
	s.Require().Len(record.MovementLog, 1)
	s.Equal("renewal visit", record.MovementLog[0].Notes)
	s.Equal(baseTime, record.MovementLog[0].Timestamp)
}

func TestDeriveStatus(t *testing.T) {
	status, location := deriveStatus(nil)
	if status != MovementIn || location != LocationWithCompany {
		t.Fatalf("empty log must project IN/with_company, got %s/%s", status, location)
	}
}
