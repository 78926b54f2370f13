package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Tutor ")
	if err != nil {
		t.Fatalf("ParseRole returned error: %v", err)
	}
	if r != RoleTutor {
		t.Fatalf("expected tutor, got %q", r)
	}

	if _, err := ParseRole("wizard"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRole_EveryKindValid(t *testing.T) {
	for _, r := range AllRoles() {
		if !r.Valid() {
			t.Fatalf("role %q reported invalid", r)
		}
	}
	if Role("").Valid() {
		t.Fatalf("empty role must be invalid")
	}
}

func TestRole_SelfAssignable(t *testing.T) {
	allowed := map[Role]bool{RoleStudent: true, RoleTutor: true, RoleCreator: true}
	for _, r := range AllRoles() {
		if got := r.SelfAssignable(); got != allowed[r] {
			t.Errorf("%s: expected self-assignable=%v, got %v", r, allowed[r], got)
		}
	}
}

func TestParseRoles_Normalizes(t *testing.T) {
	rs, err := ParseRoles([]string{"tutor", "admin", "tutor"})
	if err != nil {
		t.Fatalf("ParseRoles returned error: %v", err)
	}
	want := Roles{RoleAdmin, RoleTutor}
	if !reflect.DeepEqual(rs, want) {
		t.Fatalf("expected %v, got %v", want, rs)
	}
	if !rs.HasAny(RoleCreator, RoleAdmin) {
		t.Fatalf("expected HasAny to match admin")
	}
	if rs.Has(RoleStudent) {
		t.Fatalf("unexpected student role")
	}
}

func TestAuthEvent_ShardKey(t *testing.T) {
	if got := (AuthEvent{UserID: "u1", Email: "a@x.it"}).ShardKey(); got != "u1" {
		t.Fatalf("expected user id shard key, got %q", got)
	}
	if got := (AuthEvent{Email: "a@x.it"}).ShardKey(); got != "a@x.it" {
		t.Fatalf("expected email shard key, got %q", got)
	}
}
