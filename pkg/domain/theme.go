package domain

// Theme is the visual theme record chosen upstream on the theme-selection screen.
// The engine forwards it with generation requests and never interprets it.
type Theme struct {
	Name   string            `json:"name" yaml:"name" mapstructure:"name"`
	Colors map[string]string `json:"colors,omitempty" yaml:"colors,omitempty" mapstructure:"colors"`
	Fonts  map[string]string `json:"fonts,omitempty" yaml:"fonts,omitempty" mapstructure:"fonts"`
}

// IsZero reports whether no theme was selected.
func (t *Theme) IsZero() bool {
	return t == nil || (t.Name == "" && len(t.Colors) == 0 && len(t.Fonts) == 0)
}

// GenerateRequest is the payload of the remote generate operation.
type GenerateRequest struct {
	Requirement string `json:"requirement"`
	Theme       *Theme `json:"theme,omitempty"`
}
