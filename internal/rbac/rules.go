package rbac

// Permissions checked by the HTTP layer.
const (
	PermSubjectView    = "subject:view"
	PermSubjectEdit    = "subject:edit"
	PermAssessmentView = "assessment:view"
	PermAssessmentEdit = "assessment:edit"
	PermReportView     = "report:view"
	PermSchemeView     = "scheme:view"
	PermChangePassword = "user:change_password"
	PermUsersList      = "users:list"
	PermUsersManage    = "users:manage"
	PermEventsView     = "events:view"
	PermAnyOwner       = "records:any" // act on other users' records
)

// Default policy. Students only ever reach their own records; ownership
// is enforced separately unless the role holds records:any.
var RolePermissions = map[string][]string{
	"student": {
		"subject:*",
		"assessment:*",
		PermReportView,
		PermSchemeView,
		PermChangePassword,
	},
	"admin": {
		"*", // everything
	},
}
