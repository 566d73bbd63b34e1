package model

// Well-known setting keys. Autosave overrides are optional; when unset
// or unparsable the environment defaults apply.
const (
	SettingKeySiteName          = "branding.site_name"
	SettingKeyIdleWindowMS      = "autosave.idle_window_ms"
	SettingKeyInitialLoadMS     = "autosave.initial_load_ms"
	SettingKeyRevisionKeepLimit = "revisions.keep_limit"
)

// UpdateSettingsRequest carries a batch of settings to upsert.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}
