package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sxxm/medcheck/backend/internal/models"
)

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDirectory) FindAllergiesByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserAllergy, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserAllergy), args.Error(1)
}

type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report *models.SideEffectReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) ListReports(ctx context.Context, userID uuid.UUID) ([]models.SideEffectReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SideEffectReport), args.Error(1)
}

// stubMedications answers from a fixed table; unknown names get a not-found fallback
type stubMedications struct {
	records map[string]MedicationRecord
}

func (s *stubMedications) Resolve(ctx context.Context, name string) MedicationRecord {
	if record, ok := s.records[name]; ok {
		record.outcome = outcomeFound
		return record
	}
	return fallbackRecord(name, outcomeNotFound)
}

func (s *stubMedications) ResolveAll(ctx context.Context, names []string) []MedicationRecord {
	records := make([]MedicationRecord, 0, len(names))
	for _, name := range names {
		records = append(records, s.Resolve(ctx, name))
	}
	return records
}

// stubFoods returns a fixed inference result and remembers what it was asked
type stubFoods struct {
	mu     sync.Mutex
	result map[string][]string
	err    error
	calls  [][]string
}

func (s *stubFoods) Infer(ctx context.Context, foodNames []string) (map[string][]string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, foodNames)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubEngine records the request and replies with a fixed payload
type stubEngine struct {
	response map[string]interface{}
	err      error
	requests []*AnalysisEngineRequest
}

func (s *stubEngine) Analyze(ctx context.Context, req *AnalysisEngineRequest) (map[string]interface{}, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}
