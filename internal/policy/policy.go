package policy

import "github.com/formacademy/formacademy-api/internal/models"

// Capability names an operation family guarded by the access policy. All
// mutating endpoints consult the same table so role rules cannot drift
// between endpoints.
type Capability string

const (
	CapManageUsers    Capability = "manage_users"
	CapManageDomains  Capability = "manage_domains"
	CapManageCourses  Capability = "manage_courses"
	CapManageContent  Capability = "manage_content"
	CapViewContent    Capability = "view_content"
	CapEnroll         Capability = "enroll"
	CapManageEnroll   Capability = "manage_enrollments"
	CapTrackProgress  Capability = "track_progress"
	CapViewDashboards Capability = "view_dashboards"
	CapExportData     Capability = "export_data"
)

// Table maps capabilities to the roles allowed to exercise them.
type Table struct {
	grants map[Capability]map[models.UserRole]struct{}
}

// Options toggles policy decisions left configurable by the product.
type Options struct {
	// TrainerContent lets trainers manage courses and content. Ownership of
	// the targeted course is still enforced by the services.
	TrainerContent bool
}

// NewTable builds the capability table for the given options.
func NewTable(opts Options) *Table {
	grants := map[Capability][]models.UserRole{
		CapManageUsers:    {models.RoleAdmin},
		CapManageDomains:  {models.RoleAdmin, models.RoleSubAdmin},
		CapManageCourses:  {models.RoleAdmin, models.RoleSubAdmin},
		CapManageContent:  {models.RoleAdmin, models.RoleSubAdmin},
		CapViewContent:    {models.RoleAdmin, models.RoleSubAdmin, models.RoleTrainer, models.RoleStudent},
		CapEnroll:         {models.RoleAdmin, models.RoleStudent},
		CapManageEnroll:   {models.RoleAdmin, models.RoleSubAdmin},
		CapTrackProgress:  {models.RoleStudent},
		CapViewDashboards: {models.RoleAdmin, models.RoleSubAdmin, models.RoleTrainer, models.RoleStudent},
		CapExportData:     {models.RoleAdmin, models.RoleSubAdmin, models.RoleTrainer},
	}
	if opts.TrainerContent {
		grants[CapManageCourses] = append(grants[CapManageCourses], models.RoleTrainer)
		grants[CapManageContent] = append(grants[CapManageContent], models.RoleTrainer)
	}

	table := &Table{grants: make(map[Capability]map[models.UserRole]struct{}, len(grants))}
	for capability, roles := range grants {
		set := make(map[models.UserRole]struct{}, len(roles))
		for _, role := range roles {
			set[role] = struct{}{}
		}
		table.grants[capability] = set
	}
	return table
}

// Allows reports whether the role may exercise the capability.
func (t *Table) Allows(role models.UserRole, capability Capability) bool {
	if t == nil {
		return false
	}
	roles, ok := t.grants[capability]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}
