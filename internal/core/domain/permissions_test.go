package domain

import "testing"

func TestDerivePermissions_CreatorVersusAdmin(t *testing.T) {
	creator := DerivePermissions(Roles{RoleCreator})
	if !creator.CanCreateCourses {
		t.Fatalf("creator should be able to create courses")
	}
	if creator.CanManageUsers {
		t.Fatalf("creator must not manage users")
	}

	admin := DerivePermissions(Roles{RoleAdmin})
	if !admin.CanCreateCourses || !admin.CanManageUsers {
		t.Fatalf("admin should create courses and manage users: %+v", admin)
	}
}

func TestDerivePermissions_Unauthenticated(t *testing.T) {
	if got := DerivePermissions(nil); got != NoPermissions() {
		t.Fatalf("expected all-false table, got %+v", got)
	}

	var u *User
	if got := u.Permissions(); got != NoPermissions() {
		t.Fatalf("nil user should have no permissions, got %+v", got)
	}
}

func TestDerivePermissions_IsPure(t *testing.T) {
	sets := []Roles{
		nil,
		{RoleGuest},
		{RoleStudent, RoleTutor},
		{RoleCreator, RoleManager},
		{RoleMember, RoleAdmin, RoleGuest},
		AllRoles(),
	}
	for _, rs := range sets {
		first := DerivePermissions(rs)
		second := DerivePermissions(rs)
		if first != second {
			t.Fatalf("roles %v: derivation not deterministic: %+v vs %+v", rs, first, second)
		}
	}
}

func TestDerivePermissions_OrderIndependent(t *testing.T) {
	a := DerivePermissions(Roles{RoleTutor, RoleCreator})
	b := DerivePermissions(Roles{RoleCreator, RoleTutor, RoleTutor})
	if a != b {
		t.Fatalf("order or duplicates changed result: %+v vs %+v", a, b)
	}
}

func TestDerivePermissions_Union(t *testing.T) {
	p := DerivePermissions(Roles{RoleTutor, RoleCreator})
	if !p.CanOfferTutoring || !p.CanCreateCourses {
		t.Fatalf("expected tutor and creator grants combined: %+v", p)
	}
	if p.CanManageUsers || p.CanModerateContent {
		t.Fatalf("unexpected privileged grants: %+v", p)
	}
}

func TestDerivePermissions_Table(t *testing.T) {
	cases := []struct {
		role   Role
		check  func(Permissions) bool
		expect bool
	}{
		{RoleGuest, func(p Permissions) bool { return p.CanBrowseMarketplace }, true},
		{RoleGuest, func(p Permissions) bool { return p.CanEarnNeurons }, false},
		{RoleStudent, func(p Permissions) bool { return p.CanEnrollCourses }, true},
		{RoleStudent, func(p Permissions) bool { return p.CanOfferTutoring }, false},
		{RoleMember, func(p Permissions) bool { return p.CanBookTutoring }, true},
		{RoleTutor, func(p Permissions) bool { return p.CanOfferTutoring }, true},
		{RoleTutor, func(p Permissions) bool { return p.CanCreateCourses }, false},
		{RoleManager, func(p Permissions) bool { return p.CanModerateContent }, true},
		{RoleManager, func(p Permissions) bool { return p.CanAccessAdminPanel }, true},
		{RoleManager, func(p Permissions) bool { return p.CanManageUsers }, false},
	}
	for _, tc := range cases {
		if got := tc.check(DerivePermissions(Roles{tc.role})); got != tc.expect {
			t.Errorf("%s: expected %v, got %v", tc.role, tc.expect, got)
		}
	}
}

func TestRoleGrants_EveryRoleHandled(t *testing.T) {
	for _, r := range AllRoles() {
		p, ok := r.grants()
		if !ok {
			t.Fatalf("role %q is not handled by grants", r)
		}
		if !p.CanBrowseMarketplace {
			t.Fatalf("role %q should at least browse the marketplace", r)
		}
	}
	if _, ok := Role("superuser").grants(); ok {
		t.Fatalf("unknown role must not be handled")
	}
}

func TestVerifyGrants(t *testing.T) {
	if err := verifyGrants(AllRoles()); err != nil {
		t.Fatalf("every role must have grants: %v", err)
	}
	if err := verifyGrants([]Role{RoleStudent, Role("superuser")}); err == nil {
		t.Fatalf("expected an error for a role without grants")
	}
}

func TestDerivePermissions_UnknownRoleGrantsNothing(t *testing.T) {
	got := DerivePermissions(Roles{Role("superuser"), RoleCreator})
	if got != DerivePermissions(Roles{RoleCreator}) {
		t.Fatalf("unknown role must not add capabilities: %+v", got)
	}
	if DerivePermissions(Roles{Role("superuser")}) != NoPermissions() {
		t.Fatalf("a lone unknown role must grant nothing")
	}
}
