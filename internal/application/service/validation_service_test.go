package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docuflow/docuflow/internal/domain/entity"
)

func activeInstance(stepID int64) *entity.WorkflowInstance {
	return &entity.WorkflowInstance{
		ID:            1,
		CurrentStepID: stepID,
		Status:        entity.InstanceStatusActive,
	}
}

func TestRoleSatisfied(t *testing.T) {
	userWithRole := &entity.User{
		ID:   1,
		Role: &entity.Role{ID: 7, Name: "reviewer", Permissions: []entity.Permission{{ID: 3, Name: "approve"}}},
	}

	tests := []struct {
		name     string
		mode     RoleMatchMode
		user     *entity.User
		required int64
		want     bool
	}{
		{"exact role match", RoleMatchStrict, userWithRole, 7, true},
		{"no match", RoleMatchStrict, userWithRole, 8, false},
		{"permission id ignored in strict mode", RoleMatchStrict, userWithRole, 3, false},
		{"permission id accepted in permissive mode", RoleMatchPermissive, userWithRole, 3, true},
		{"nil user", RoleMatchStrict, nil, 7, false},
		{"user without role", RoleMatchStrict, &entity.User{ID: 2}, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewValidationService(tt.mode)
			assert.Equal(t, tt.want, s.RoleSatisfied(tt.user, tt.required))
		})
	}
}

func TestValidateWorkflowTransitionCollectsAllViolations(t *testing.T) {
	s := NewValidationService(RoleMatchStrict)

	transition := &entity.WorkflowTransition{
		ID:              21,
		FromStepID:      int64p(2),
		ToStepID:        3,
		RequiredRoleID:  int64p(7),
		RequiresComment: true,
		IsActive:        false,
	}

	instance := activeInstance(1)
	instance.Status = entity.InstanceStatusCancelled

	user := &entity.User{ID: 9, Role: &entity.Role{ID: 8, Name: "clerk"}}

	result := s.ValidateWorkflowTransition(instance, transition, &entity.Document{ID: 1}, user, "")
	assert.False(t, result.IsValid())
	assert.Len(t, result.Errors, 5)
	assert.Contains(t, result.Message(), "only active workflows can transition")
	assert.Contains(t, result.Message(), "invalid transition for current step")
	assert.Contains(t, result.Message(), "transition is not active")
	assert.Contains(t, result.Message(), "missing required role")
	assert.Contains(t, result.Message(), "transition requires a comment")
}

func TestValidateWorkflowTransitionPasses(t *testing.T) {
	s := NewValidationService(RoleMatchStrict)

	transition := &entity.WorkflowTransition{
		ID:         21,
		FromStepID: int64p(2),
		ToStepID:   3,
		IsActive:   true,
	}

	result := s.ValidateWorkflowTransition(activeInstance(2), transition, &entity.Document{ID: 1}, &entity.User{ID: 1}, "")
	assert.True(t, result.IsValid())
}

func TestValidateWorkflowTransitionConditions(t *testing.T) {
	s := NewValidationService(RoleMatchStrict)

	tests := []struct {
		name       string
		conditions map[string]interface{}
		metadata   map[string]interface{}
		docStatus  string
		wantValid  bool
	}{
		{
			name:       "required metadata present",
			conditions: map[string]interface{}{"requiredMetadata": []interface{}{"amount"}},
			metadata:   map[string]interface{}{"amount": 120.5},
			wantValid:  true,
		},
		{
			name:       "required metadata missing",
			conditions: map[string]interface{}{"requiredMetadata": []interface{}{"amount"}},
			wantValid:  false,
		},
		{
			name:       "required metadata falsy",
			conditions: map[string]interface{}{"requiredMetadata": []string{"approved"}},
			metadata:   map[string]interface{}{"approved": false},
			wantValid:  false,
		},
		{
			name:       "document status matches",
			conditions: map[string]interface{}{"documentStatus": "in_review"},
			docStatus:  "in_review",
			wantValid:  true,
		},
		{
			name:       "document status mismatch",
			conditions: map[string]interface{}{"documentStatus": "in_review"},
			docStatus:  "draft",
			wantValid:  false,
		},
		{
			name:       "unknown condition keys are ignored",
			conditions: map[string]interface{}{"futureCondition": "whatever"},
			wantValid:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transition := &entity.WorkflowTransition{
				FromStepID: int64p(1),
				ToStepID:   2,
				IsActive:   true,
				Conditions: tt.conditions,
			}
			instance := activeInstance(1)
			instance.Metadata = tt.metadata

			result := s.ValidateWorkflowTransition(instance, transition, &entity.Document{ID: 1, Status: tt.docStatus}, &entity.User{ID: 1}, "")
			assert.Equal(t, tt.wantValid, result.IsValid(), result.Message())
		})
	}
}

func TestValidateWorkflowDefinition(t *testing.T) {
	s := NewValidationService(RoleMatchStrict)

	admin := &entity.User{ID: 1, Role: &entity.Role{ID: 1, Name: entity.RoleNameAdmin}}
	clerk := &entity.User{ID: 2, Role: &entity.Role{ID: 8, Name: "clerk"}}

	valid := &entity.WorkflowDefinition{
		Code:        "X",
		Steps:       []*entity.WorkflowStep{{Name: "a"}},
		Transitions: []*entity.WorkflowTransition{{ToStepID: 0}},
	}

	assert.True(t, s.ValidateWorkflowDefinition(valid, false, admin).IsValid())

	result := s.ValidateWorkflowDefinition(&entity.WorkflowDefinition{}, true, clerk)
	assert.False(t, result.IsValid())
	assert.Contains(t, result.Message(), "workflow code is required")
	assert.Contains(t, result.Message(), "at least one step")
	assert.Contains(t, result.Message(), "at least one transition")
	assert.Contains(t, result.Message(), "cannot manage workflow definitions")
}

func TestCanManageWorkflows(t *testing.T) {
	admin := &entity.User{ID: 1, Role: &entity.Role{ID: 1, Name: entity.RoleNameAdmin}}
	manager := &entity.User{ID: 2, Role: &entity.Role{ID: 2, Name: "ops", Permissions: []entity.Permission{{ID: 5, Name: entity.PermManageWorkflow}}}}
	clerk := &entity.User{ID: 3, Role: &entity.Role{ID: 8, Name: "clerk"}}

	assert.True(t, CanManageWorkflows(admin))
	assert.True(t, CanManageWorkflows(manager))
	assert.False(t, CanManageWorkflows(clerk))
	assert.False(t, CanManageWorkflows(nil))
}

func TestValidateTaskPermissions(t *testing.T) {
	s := NewValidationService(RoleMatchStrict)

	task := &entity.WorkflowTask{
		ID:             1,
		AssigneeID:     int64p(42),
		AssigneeRoleID: int64p(7),
	}

	assignee := &entity.User{ID: 42, Role: &entity.Role{ID: 7, Name: "reviewer"}}
	assert.True(t, s.ValidateTaskPermissions(task, assignee).IsValid())

	stranger := &entity.User{ID: 9, Role: &entity.Role{ID: 7, Name: "reviewer"}}
	result := s.ValidateTaskPermissions(task, stranger)
	assert.Contains(t, result.Message(), "only assigned user can modify this task")

	// Admin override on the assignee check; the role check still applies.
	admin := &entity.User{ID: 10, Role: &entity.Role{ID: 1, Name: entity.RoleNameAdmin}}
	result = s.ValidateTaskPermissions(task, admin)
	assert.NotContains(t, result.Message(), "only assigned user")
	assert.Contains(t, result.Message(), "assignee role")
}
