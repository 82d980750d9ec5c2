package model

// Setting is a string-keyed configuration value editable by admins.
type Setting struct {
	Key   string `json:"key" gorm:"column:setting_key;primaryKey;size:100"`
	Value string `json:"value" gorm:"column:setting_value;type:text"`
}

// Known setting keys.
const (
	SettingCompanyName    = "company_name"
	SettingCompanyLogo    = "company_logo"
	SettingCEOEmail       = "ceo_email"
	SettingAdminEmail     = "admin_email"
	SettingMailtrapAPIKey = "mailtrap_api_key"
)

// DefaultCompanyName is used until an admin configures one.
const DefaultCompanyName = "GEEC"
