package model

// Settings are user preferences stored under app_settings.
type Settings struct {
	Currency string `json:"currency"`
	Theme    string `json:"theme"`
	Locale   string `json:"locale"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{Currency: "BRL", Theme: "system", Locale: "pt-BR"}
}
