package domain

import "fmt"

// Permissions is the capability table derived from a role set.
// It is never stored; callers recompute it from the current roles.
type Permissions struct {
	CanBrowseMarketplace bool `json:"canBrowseMarketplace"`
	CanEnrollCourses     bool `json:"canEnrollCourses"`
	CanBookTutoring      bool `json:"canBookTutoring"`
	CanEarnNeurons       bool `json:"canEarnNeurons"`
	CanCreateCourses     bool `json:"canCreateCourses"`
	CanPublishContent    bool `json:"canPublishContent"`
	CanOfferTutoring     bool `json:"canOfferTutoring"`
	CanManageSessions    bool `json:"canManageSessions"`
	CanViewAnalytics     bool `json:"canViewAnalytics"`
	CanModerateContent   bool `json:"canModerateContent"`
	CanAccessAdminPanel  bool `json:"canAccessAdminPanel"`
	CanManageUsers       bool `json:"canManageUsers"`
}

// NoPermissions is the table of an unauthenticated visitor.
func NoPermissions() Permissions {
	return Permissions{}
}

func init() {
	if err := verifyGrants(AllRoles()); err != nil {
		panic(err)
	}
}

// verifyGrants fails when a role of the enumeration has no grants entry.
func verifyGrants(roles []Role) error {
	for _, r := range roles {
		if _, ok := r.grants(); !ok {
			return fmt.Errorf("domain: role %q has no permission grants", r)
		}
	}
	return nil
}

// DerivePermissions ORs together the grants of every role in roles. Values
// outside the enumeration grant nothing.
func DerivePermissions(roles Roles) Permissions {
	var p Permissions
	for _, r := range roles {
		g, ok := r.grants()
		if !ok {
			continue
		}
		p = p.union(g)
	}
	return p
}

// grants returns the capabilities a single role contributes. ok is false for
// values outside the enumeration.
func (r Role) grants() (p Permissions, ok bool) {
	switch r {
	case RoleGuest:
		p.CanBrowseMarketplace = true
	case RoleStudent, RoleMember:
		p.CanBrowseMarketplace = true
		p.CanEarnNeurons = true
		p.CanEnrollCourses = true
		p.CanBookTutoring = true
	case RoleTutor:
		p.CanBrowseMarketplace = true
		p.CanEarnNeurons = true
		p.CanOfferTutoring = true
		p.CanManageSessions = true
		p.CanViewAnalytics = true
	case RoleCreator:
		p.CanBrowseMarketplace = true
		p.CanEarnNeurons = true
		p.CanCreateCourses = true
		p.CanPublishContent = true
		p.CanViewAnalytics = true
	case RoleManager:
		p.CanBrowseMarketplace = true
		p.CanEarnNeurons = true
		p.CanManageSessions = true
		p.CanViewAnalytics = true
		p.CanModerateContent = true
		p.CanAccessAdminPanel = true
	case RoleAdmin:
		p = Permissions{
			CanBrowseMarketplace: true,
			CanEnrollCourses:     true,
			CanBookTutoring:      true,
			CanEarnNeurons:       true,
			CanCreateCourses:     true,
			CanPublishContent:    true,
			CanOfferTutoring:     true,
			CanManageSessions:    true,
			CanViewAnalytics:     true,
			CanModerateContent:   true,
			CanAccessAdminPanel:  true,
			CanManageUsers:       true,
		}
	default:
		return Permissions{}, false
	}
	return p, true
}

func (p Permissions) union(o Permissions) Permissions {
	return Permissions{
		CanBrowseMarketplace: p.CanBrowseMarketplace || o.CanBrowseMarketplace,
		CanEnrollCourses:     p.CanEnrollCourses || o.CanEnrollCourses,
		CanBookTutoring:      p.CanBookTutoring || o.CanBookTutoring,
		CanEarnNeurons:       p.CanEarnNeurons || o.CanEarnNeurons,
		CanCreateCourses:     p.CanCreateCourses || o.CanCreateCourses,
		CanPublishContent:    p.CanPublishContent || o.CanPublishContent,
		CanOfferTutoring:     p.CanOfferTutoring || o.CanOfferTutoring,
		CanManageSessions:    p.CanManageSessions || o.CanManageSessions,
		CanViewAnalytics:     p.CanViewAnalytics || o.CanViewAnalytics,
		CanModerateContent:   p.CanModerateContent || o.CanModerateContent,
		CanAccessAdminPanel:  p.CanAccessAdminPanel || o.CanAccessAdminPanel,
		CanManageUsers:       p.CanManageUsers || o.CanManageUsers,
	}
}
