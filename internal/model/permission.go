package model

// Permission is a grantable action code. The migration seeds the full
// catalog and role grants reference the codes, so the strings here
// must match the seeded rows.
type Permission string

const (
	PermissionMediaUpload Permission = "media:upload"

	// Page lifecycle. write_own covers creating pages and editing
	// your own; write_all extends edits to any author's pages.
	PermissionPagesRead     Permission = "pages:read"
	PermissionPagesWriteOwn Permission = "pages:write_own"
	PermissionPagesWriteAll Permission = "pages:write_all"
	PermissionPagesPublish  Permission = "pages:publish"

	PermissionRevisionsRead Permission = "revisions:read"

	// Account administration.
	PermissionAuthorsRead  Permission = "authors:read"
	PermissionAuthorsWrite Permission = "authors:write"
	PermissionRolesRead    Permission = "roles:read"
	PermissionRolesWrite   Permission = "roles:write"

	PermissionSettingsRead  Permission = "settings:read"
	PermissionSettingsWrite Permission = "settings:write"

	PermissionCollectionsRead  Permission = "collections:read"
	PermissionCollectionsWrite Permission = "collections:write"

	PermissionActivityRead Permission = "activity:read"
)

// AllPermissions is the full catalog, granted to Superadmin.
var AllPermissions = []Permission{
	PermissionMediaUpload,
	PermissionPagesRead,
	PermissionPagesWriteOwn,
	PermissionPagesWriteAll,
	PermissionPagesPublish,
	PermissionRevisionsRead,
	PermissionAuthorsRead,
	PermissionAuthorsWrite,
	PermissionRolesRead,
	PermissionRolesWrite,
	PermissionSettingsRead,
	PermissionSettingsWrite,
	PermissionCollectionsRead,
	PermissionCollectionsWrite,
	PermissionActivityRead,
}
