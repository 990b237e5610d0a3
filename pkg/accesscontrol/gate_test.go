package accesscontrol

import "testing"

func TestIsVisiblePermissionFlag(t *testing.T) {
	access := &AccessControl{Permissions: PermissionSet{CanViewDashboard: true}}

	if !IsVisible(MenuItem{ID: "dashboard", Permission: PermViewDashboard}, access, false) {
		t.Error("granted permission must show the item")
	}
	if IsVisible(MenuItem{ID: "osha", Permission: PermViewOSHALogs}, access, false) {
		t.Error("denied permission must hide the item")
	}
	// The permission flag is authoritative; the admin override does not
	// bypass an explicit denial.
	if IsVisible(MenuItem{ID: "osha", Permission: PermViewOSHALogs}, access, true) {
		t.Error("admin override must not bypass an explicit permission")
	}
}

func TestIsVisibleUnknownPermissionDenied(t *testing.T) {
	access := &AccessControl{Permissions: PermissionSet{CanViewDashboard: true}}
	if IsVisible(MenuItem{ID: "x", Permission: "no_such_flag"}, access, true) {
		t.Error("unknown permission names must deny")
	}
}

func TestIsVisibleGroupFallback(t *testing.T) {
	access := &AccessControl{CognitoGroups: []string{"safety-council", "plant-users"}}
	item := MenuItem{ID: "council", FallbackGroups: []string{"safety-council", "safety-leads"}}

	if !IsVisible(item, access, false) {
		t.Error("group intersection must show the item")
	}

	access.CognitoGroups = []string{"plant-users"}
	if IsVisible(item, access, false) {
		t.Error("no group overlap must hide the item")
	}
}

func TestIsVisibleAdminOnly(t *testing.T) {
	access := &AccessControl{}
	item := MenuItem{ID: "administration"}

	if IsVisible(item, access, false) {
		t.Error("bare items hide without the admin override")
	}
	if !IsVisible(item, access, true) {
		t.Error("bare items show under the admin override")
	}
}

func TestIsVisibleNilAccess(t *testing.T) {
	if IsVisible(MenuItem{ID: "dashboard", Permission: PermViewDashboard}, nil, true) {
		t.Error("nil access must hide everything, admin override included")
	}
}
