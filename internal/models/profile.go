package models

// Profile describes the agent operating this device.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Location string `json:"location"`
	Joined   string `json:"joined"`
}

// SecuritySettings holds the agent's local security preferences.
type SecuritySettings struct {
	BiometricEnabled      bool `json:"biometric_enabled"`
	SessionTimeoutMinutes int  `json:"session_timeout_minutes"`
	AutoLogout            bool `json:"auto_logout"`
}

// DefaultSecuritySettings returns the settings applied before the agent has
// saved any preferences.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		BiometricEnabled:      false,
		SessionTimeoutMinutes: 5,
		AutoLogout:            true,
	}
}
