package domain

const (
	DefaultAbandonAfterHours        = 24
	DefaultIgnoreCartsOlderThanDays = 30
	DefaultRunEveryHours            = 24
)

// Configuration is the parsed, always-valid form of the thresholds the
// pipeline runs with.
type Configuration struct {
	AbandonAfterHours        int `json:"abandonAfterHours"`
	IgnoreCartsOlderThanDays int `json:"ignoreCartsOlderThanDays"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		AbandonAfterHours:        DefaultAbandonAfterHours,
		IgnoreCartsOlderThanDays: DefaultIgnoreCartsOlderThanDays,
	}
}

// ConfigurationDocument is the stored form. Thresholds arrive either as
// strings (form input) or numbers, so they stay untyped until parsed.
type ConfigurationDocument struct {
	AbandonAfterHours    any    `json:"abandonAfterHours,omitempty"`
	IgnoreCartsOlderThan any    `json:"ignoreCartsOlderThan,omitempty"`
	Discount             string `json:"discount,omitempty"`
	EmailSubject         string `json:"emailSubject,omitempty"`
	EmailTemplate        string `json:"emailTemplate,omitempty"`
}

type ServiceAdministration struct {
	ServiceActivated bool `json:"serviceActivated"`
	RunEveryHours    any  `json:"runEveryHours,omitempty"`
}
