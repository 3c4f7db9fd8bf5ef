package service

import (
	"context"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"github.com/docuflow/docuflow/internal/domain/event"
)

// Mock repositories with func fields, following the pattern used across
// the service tests: set only what a test needs, defaults stay benign.

type mockDefinitionRepo struct {
	createFunc            func(ctx context.Context, def *entity.WorkflowDefinition) error
	getByIDFunc           func(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)
	getByCodeFunc         func(ctx context.Context, code string) (*entity.WorkflowDefinition, error)
	updateFunc            func(ctx context.Context, def *entity.WorkflowDefinition) error
	deleteFunc            func(ctx context.Context, id int64) error
	listFunc              func(ctx context.Context, limit, offset int) ([]*entity.WorkflowDefinition, error)
	getStepByIDFunc       func(ctx context.Context, id int64) (*entity.WorkflowStep, error)
	getTransitionByIDFunc func(ctx context.Context, id int64) (*entity.WorkflowTransition, error)
}

func (m *mockDefinitionRepo) Create(ctx context.Context, def *entity.WorkflowDefinition) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, def)
	}
	def.ID = 1
	return nil
}

func (m *mockDefinitionRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDefinitionRepo) GetByCode(ctx context.Context, code string) (*entity.WorkflowDefinition, error) {
	if m.getByCodeFunc != nil {
		return m.getByCodeFunc(ctx, code)
	}
	return nil, nil
}

func (m *mockDefinitionRepo) Update(ctx context.Context, def *entity.WorkflowDefinition) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, def)
	}
	return nil
}

func (m *mockDefinitionRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockDefinitionRepo) List(ctx context.Context, limit, offset int) ([]*entity.WorkflowDefinition, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockDefinitionRepo) GetStepByID(ctx context.Context, id int64) (*entity.WorkflowStep, error) {
	if m.getStepByIDFunc != nil {
		return m.getStepByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDefinitionRepo) GetTransitionByID(ctx context.Context, id int64) (*entity.WorkflowTransition, error) {
	if m.getTransitionByIDFunc != nil {
		return m.getTransitionByIDFunc(ctx, id)
	}
	return nil, nil
}

type mockInstanceRepo struct {
	createFunc                    func(ctx context.Context, instance *entity.WorkflowInstance) error
	getByIDFunc                   func(ctx context.Context, id int64) (*entity.WorkflowInstance, error)
	getActiveByDocumentIDFunc     func(ctx context.Context, documentID int64) (*entity.WorkflowInstance, error)
	updateCASFunc                 func(ctx context.Context, instance *entity.WorkflowInstance) error
	listActiveFunc                func(ctx context.Context, filter port.InstanceFilter) ([]*entity.WorkflowInstance, error)
	countActiveByDefinitionIDFunc func(ctx context.Context, definitionID int64) (int64, error)
}

func (m *mockInstanceRepo) Create(ctx context.Context, instance *entity.WorkflowInstance) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, instance)
	}
	instance.ID = 1
	return nil
}

func (m *mockInstanceRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowInstance, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockInstanceRepo) GetActiveByDocumentID(ctx context.Context, documentID int64) (*entity.WorkflowInstance, error) {
	if m.getActiveByDocumentIDFunc != nil {
		return m.getActiveByDocumentIDFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockInstanceRepo) UpdateCAS(ctx context.Context, instance *entity.WorkflowInstance) error {
	if m.updateCASFunc != nil {
		return m.updateCASFunc(ctx, instance)
	}
	instance.Version++
	return nil
}

func (m *mockInstanceRepo) ListActive(ctx context.Context, filter port.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockInstanceRepo) CountActiveByDefinitionID(ctx context.Context, definitionID int64) (int64, error) {
	if m.countActiveByDefinitionIDFunc != nil {
		return m.countActiveByDefinitionIDFunc(ctx, definitionID)
	}
	return 0, nil
}

type mockTaskRepo struct {
	createFunc          func(ctx context.Context, task *entity.WorkflowTask) error
	getByIDFunc         func(ctx context.Context, id int64) (*entity.WorkflowTask, error)
	getByInstanceIDFunc func(ctx context.Context, instanceID int64) ([]*entity.WorkflowTask, error)
	updateFunc          func(ctx context.Context, task *entity.WorkflowTask) error
	findFunc            func(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.WorkflowTask) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	task.ID = 1
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowTask, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.WorkflowTask, error) {
	if m.getByInstanceIDFunc != nil {
		return m.getByInstanceIDFunc(ctx, instanceID)
	}
	return nil, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *entity.WorkflowTask) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Find(ctx context.Context, filter port.TaskFilter) ([]*entity.WorkflowTask, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter)
	}
	return nil, nil
}

type mockDocumentRepo struct {
	getByIDFunc      func(ctx context.Context, id int64) (*entity.Document, error)
	updateStatusFunc func(ctx context.Context, id int64, status string) error
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Document{ID: id, Title: "doc", Status: "draft"}, nil
}

func (m *mockDocumentRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

type mockUserRepo struct {
	getByIDFunc      func(ctx context.Context, id int64) (*entity.User, error)
	listByRoleIDFunc func(ctx context.Context, roleID int64) ([]*entity.User, error)
	getRoleByIDFunc  func(ctx context.Context, roleID int64) (*entity.Role, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) ListByRoleID(ctx context.Context, roleID int64) ([]*entity.User, error) {
	if m.listByRoleIDFunc != nil {
		return m.listByRoleIDFunc(ctx, roleID)
	}
	return nil, nil
}

func (m *mockUserRepo) GetRoleByID(ctx context.Context, roleID int64) (*entity.Role, error) {
	if m.getRoleByIDFunc != nil {
		return m.getRoleByIDFunc(ctx, roleID)
	}
	return &entity.Role{ID: roleID, Name: "role"}, nil
}

type mockStatusRepo struct {
	getByIDFunc   func(ctx context.Context, id int64) (*entity.Status, error)
	getByCodeFunc func(ctx context.Context, code string) (*entity.Status, error)
}

func (m *mockStatusRepo) GetByID(ctx context.Context, id int64) (*entity.Status, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Status{ID: id, Code: "in_review", Label: "In Review"}, nil
}

func (m *mockStatusRepo) GetByCode(ctx context.Context, code string) (*entity.Status, error) {
	if m.getByCodeFunc != nil {
		return m.getByCodeFunc(ctx, code)
	}
	return nil, nil
}

type mockConfigRepo struct {
	getBoolFunc func(ctx context.Context, key string) (bool, error)
}

func (m *mockConfigRepo) GetBool(ctx context.Context, key string) (bool, error) {
	if m.getBoolFunc != nil {
		return m.getBoolFunc(ctx, key)
	}
	return false, nil
}

// mockTxManager runs the function directly unless overridden.
type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// capturingSink records every published event in order.
type capturingSink struct {
	events []*event.Event
}

func (s *capturingSink) Publish(_ context.Context, evt *event.Event) {
	s.events = append(s.events, evt)
}

func (s *capturingSink) byType(t event.Type) []*event.Event {
	var out []*event.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// mockNotifier records sent notifications.
type mockNotifier struct {
	sendFunc func(ctx context.Context, n port.Notification) error
	sent     []port.Notification
}

func (m *mockNotifier) Send(ctx context.Context, n port.Notification) error {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, n)
	}
	m.sent = append(m.sent, n)
	return nil
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func int64p(v int64) *int64 { return &v }
