package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/blood-donation-support-server/internal/domain"
)

// MemoryStore is an in-memory implementation of every persistence port. It
// backs the server's database-less mode and the test suites. All methods are
// safe for concurrent use, and appointment saves enforce the same version
// check as the PostgreSQL repository.
type MemoryStore struct {
	mu             sync.RWMutex
	appointments   map[uuid.UUID]*domain.Appointment
	events         map[uuid.UUID]*domain.DonationEvent
	questionnaires map[string]*domain.Questionnaire
	inventory      []domain.InventoryRecord
	emergencies    map[uuid.UUID]*domain.EmergencyRequest
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments:   make(map[uuid.UUID]*domain.Appointment),
		events:         make(map[uuid.UUID]*domain.DonationEvent),
		questionnaires: make(map[string]*domain.Questionnaire),
		emergencies:    make(map[uuid.UUID]*domain.EmergencyRequest),
	}
}

// Create inserts a new appointment.
func (m *MemoryStore) Create(ctx context.Context, appointment *domain.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.appointments[appointment.ID]; exists {
		return domain.NewValidationError("id", "appointment already exists", appointment.ID)
	}
	stored := *appointment
	m.appointments[appointment.ID] = &stored
	return nil
}

// GetByID retrieves an appointment by its ID.
func (m *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment not found: %w", domain.ErrNotFound)
	}
	copied := *stored
	return &copied, nil
}

// Save writes back an appointment under the version check.
func (m *MemoryStore) Save(ctx context.Context, appointment *domain.Appointment, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.appointments[appointment.ID]
	if !ok {
		return fmt.Errorf("appointment not found: %w", domain.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return &domain.ConflictError{
			AppointmentID: appointment.ID,
			Expected:      appointment.Status,
			Actual:        stored.Status,
		}
	}

	appointment.Version = expectedVersion + 1
	copied := *appointment
	m.appointments[appointment.ID] = &copied
	return nil
}

// ListByDonor returns all appointments belonging to a donor.
func (m *MemoryStore) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Appointment
	for _, stored := range m.appointments {
		if stored.DonorID == donorID {
			copied := *stored
			result = append(result, &copied)
		}
	}
	return result, nil
}

// PutEvent stores a donation event.
func (m *MemoryStore) PutEvent(event *domain.DonationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
}

// GetEvent retrieves a donation event by its ID.
func (m *MemoryStore) GetEvent(ctx context.Context, id uuid.UUID) (*domain.DonationEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("donation event not found: %w", domain.ErrNotFound)
	}
	return event, nil
}

// PutQuestionnaire stores a questionnaire definition.
func (m *MemoryStore) PutQuestionnaire(questionnaire *domain.Questionnaire) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questionnaires[questionnaire.ID] = questionnaire
}

// GetQuestionnaire retrieves a questionnaire by its ID.
func (m *MemoryStore) GetQuestionnaire(ctx context.Context, id string) (*domain.Questionnaire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	questionnaire, ok := m.questionnaires[id]
	if !ok {
		return nil, fmt.Errorf("questionnaire not found: %w", domain.ErrNotFound)
	}
	return questionnaire, nil
}

// AddInventory appends blood batches to the inventory.
func (m *MemoryStore) AddInventory(records ...domain.InventoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory = append(m.inventory, records...)
}

// Snapshot returns all batches of the given blood type.
func (m *MemoryStore) Snapshot(ctx context.Context, bloodType domain.BloodType) ([]domain.InventoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.InventoryRecord
	for _, record := range m.inventory {
		if record.BloodType == bloodType {
			result = append(result, record)
		}
	}
	return result, nil
}

// PutRequest stores an emergency request.
func (m *MemoryStore) PutRequest(request *domain.EmergencyRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *request
	m.emergencies[request.ID] = &stored
}

// GetRequest retrieves an emergency request by its ID.
func (m *MemoryStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.EmergencyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	request, ok := m.emergencies[id]
	if !ok {
		return nil, fmt.Errorf("emergency request not found: %w", domain.ErrNotFound)
	}
	copied := *request
	return &copied, nil
}

// SaveRequest writes back a mutated emergency request.
func (m *MemoryStore) SaveRequest(ctx context.Context, request *domain.EmergencyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emergencies[request.ID]; !ok {
		return fmt.Errorf("emergency request not found: %w", domain.ErrNotFound)
	}
	copied := *request
	m.emergencies[request.ID] = &copied
	return nil
}
