package rbac

import (
	"errors"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleCaregiver, PermissionAssignTask, true},
		{RoleUser, PermissionAssignTask, false},
		{RoleUser, PermissionCompleteTask, true},
		{RoleCaregiver, PermissionReact, true},
		{RoleUser, PermissionListCaregivers, true},
		{RoleCaregiver, PermissionListCaregivers, false},
		{RoleUser, PermissionNearbyPatients, false},
		{RoleUser, PermissionPatientContact, false},
		{RoleCaregiver, PermissionPatientContact, true},
		{"admin", PermissionReadTask, false},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.permission); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestCheckPermissionError(t *testing.T) {
	err := CheckPermission(RoleUser, PermissionLinkPatient)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected PermissionDeniedError, got %v", err)
	}
	if denied.Permission != PermissionLinkPatient {
		t.Fatalf("unexpected permission %q", denied.Permission)
	}
	if CheckPermission(RoleCaregiver, PermissionLinkPatient) != nil {
		t.Fatal("caregiver should be allowed to link patients")
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleUser) || !ValidRole(RoleCaregiver) || ValidRole("") {
		t.Fatal("unexpected role validation result")
	}
}
