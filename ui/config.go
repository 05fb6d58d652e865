package ui

// Config contains TUI-specific configuration.
type Config struct {
	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool   `env:"HEALTHGUIDE_MOUSE"`

	// Engine is the resolved speech engine, shown in the help view.
	Engine string

	// For debugging the UI
	GlamourEnabled bool `env:"HEALTHGUIDE_ENABLE_GLAMOUR" envDefault:"true"`
}
