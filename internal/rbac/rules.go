package rbac

const (
	RoleViewer = "viewer"
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

const (
	PermQuizView     = "quiz:view"
	PermQuizCreate   = "quiz:create"
	PermQuizValidate = "quiz:validate"
	PermQuizExport   = "quiz:export"
	PermQuizDelete   = "quiz:delete"
	PermQTIPreview   = "qti:preview"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleViewer: {
		PermQuizView,
		PermQTIPreview,
	},
	RoleAuthor: {
		"quiz:*",
		PermQTIPreview,
	},
	RoleAdmin: {
		"*", // everything
	},
}

// KnownRole reports whether the default policy defines role.
func KnownRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
