package service

import (
	"fmt"
	"strings"

	"github.com/docuflow/docuflow/internal/domain/entity"
)

// RoleMatchMode decides what satisfies a required-role gate.
type RoleMatchMode string

const (
	// RoleMatchStrict accepts only an exact role id match.
	RoleMatchStrict RoleMatchMode = "strict"
	// RoleMatchPermissive additionally accepts a permission whose id
	// equals the required role id. This mirrors the legacy behavior of
	// the system this engine replaces; strict is the default.
	RoleMatchPermissive RoleMatchMode = "permissive"
)

// ValidationResult aggregates every violated rule so callers can report
// all of them at once.
type ValidationResult struct {
	Errors []string
}

// IsValid returns true when no rule was violated.
func (r ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

// Message joins all violations into one human-readable message.
func (r ValidationResult) Message() string { return strings.Join(r.Errors, ", ") }

// ValidationService evaluates workflow rules as pure predicates over
// already-loaded entities. It performs no I/O.
type ValidationService struct {
	roleMatchMode RoleMatchMode
}

// NewValidationService creates a validation service. An empty mode
// defaults to strict role matching.
func NewValidationService(mode RoleMatchMode) *ValidationService {
	if mode == "" {
		mode = RoleMatchStrict
	}
	return &ValidationService{roleMatchMode: mode}
}

// RoleSatisfied reports whether the user's role satisfies the required
// role id under the configured match mode.
func (s *ValidationService) RoleSatisfied(user *entity.User, requiredRoleID int64) bool {
	if user == nil || user.Role == nil {
		return false
	}
	if user.Role.ID == requiredRoleID {
		return true
	}
	if s.roleMatchMode == RoleMatchPermissive {
		for _, p := range user.Role.Permissions {
			if p.ID == requiredRoleID {
				return true
			}
		}
	}
	return false
}

// ValidateWorkflowTransition checks every rule and reports all
// violations; it never short-circuits.
func (s *ValidationService) ValidateWorkflowTransition(
	instance *entity.WorkflowInstance,
	transition *entity.WorkflowTransition,
	document *entity.Document,
	user *entity.User,
	comment string,
) ValidationResult {
	var result ValidationResult

	if instance.Status != entity.InstanceStatusActive {
		result.Errors = append(result.Errors, "only active workflows can transition")
	}

	if !transition.AppliesFrom(instance.CurrentStepID) {
		result.Errors = append(result.Errors, "invalid transition for current step")
	}

	if !transition.IsActive {
		result.Errors = append(result.Errors, "transition is not active")
	}

	if transition.RequiredRoleID != nil && !s.RoleSatisfied(user, *transition.RequiredRoleID) {
		result.Errors = append(result.Errors, "missing required role")
	}

	if transition.RequiresComment && strings.TrimSpace(comment) == "" {
		result.Errors = append(result.Errors, "transition requires a comment")
	}

	result.Errors = append(result.Errors, s.checkConditions(instance, transition, document)...)

	return result
}

// checkConditions interprets the transition's condition bag. Unknown
// keys are ignored for forward compatibility.
func (s *ValidationService) checkConditions(
	instance *entity.WorkflowInstance,
	transition *entity.WorkflowTransition,
	document *entity.Document,
) []string {
	var errs []string

	for key, raw := range transition.Conditions {
		switch key {
		case "requiredMetadata":
			for _, field := range toStringSlice(raw) {
				if !hasTruthyField(instance.Metadata, field) {
					errs = append(errs, fmt.Sprintf("missing required metadata field %q", field))
				}
			}
		case "documentStatus":
			want := fmt.Sprint(raw)
			if document == nil || document.Status != want {
				errs = append(errs, fmt.Sprintf("document status must be %q", want))
			}
		}
	}

	return errs
}

// ValidateWorkflowDefinition checks a proposed definition. codeTaken is
// computed by the caller against the definition store.
func (s *ValidationService) ValidateWorkflowDefinition(
	def *entity.WorkflowDefinition,
	codeTaken bool,
	user *entity.User,
) ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(def.Code) == "" {
		result.Errors = append(result.Errors, "workflow code is required")
	}
	if codeTaken {
		result.Errors = append(result.Errors, fmt.Sprintf("workflow code %q is already in use", def.Code))
	}
	if len(def.Steps) == 0 {
		result.Errors = append(result.Errors, "workflow definition must have at least one step")
	}
	if len(def.Transitions) == 0 {
		result.Errors = append(result.Errors, "workflow definition must have at least one transition")
	}
	if !CanManageWorkflows(user) {
		result.Errors = append(result.Errors, "user cannot manage workflow definitions")
	}

	return result
}

// CanManageWorkflows reports whether the user may administer workflow
// definitions: the admin role, or a role carrying manage_workflow.
func CanManageWorkflows(user *entity.User) bool {
	if user == nil || user.Role == nil {
		return false
	}
	return user.IsAdmin() || user.Role.HasPermission(entity.PermManageWorkflow)
}

// ValidateTaskPermissions checks whether the user may act on the task.
// Both checks are independent; both must pass when applicable.
func (s *ValidationService) ValidateTaskPermissions(task *entity.WorkflowTask, user *entity.User) ValidationResult {
	var result ValidationResult

	if task.AssigneeID != nil && *task.AssigneeID != user.ID && !user.IsAdmin() {
		result.Errors = append(result.Errors, "only assigned user can modify this task")
	}

	if task.AssigneeRoleID != nil && !s.RoleSatisfied(user, *task.AssigneeRoleID) {
		result.Errors = append(result.Errors, "user does not hold the task's assignee role")
	}

	return result
}

// toStringSlice converts []string or JSON-decoded []interface{} values.
func toStringSlice(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

// hasTruthyField reports whether the metadata field is present and not
// falsy (nil, empty string, false, or zero).
func hasTruthyField(metadata map[string]interface{}, field string) bool {
	val, ok := metadata[field]
	if !ok || val == nil {
		return false
	}
	switch v := val.(type) {
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}
