package models

import (
	"regexp"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var dataImageURI = regexp.MustCompile(`^data:image/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/=]*$`)

// DefaultSources is the source-label list of a fresh installation.
var DefaultSources = []string{"Website", "Referral", "Trade fair", "Cold call", "Other"}

// CompanySettings is the installation-wide configuration.
type CompanySettings struct {
	CompanyName string   `json:"companyName"`
	Logo        string   `json:"logo"`
	Sources     []string `json:"sources"`
}

// DefaultSettings returns the settings written on first run.
func DefaultSettings(sources []string) CompanySettings {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return CompanySettings{
		CompanyName: "My Company",
		Sources:     slices.Clone(sources),
	}
}

// HasSource reports whether label is already configured.
func (s *CompanySettings) HasSource(label string) bool {
	return slices.Contains(s.Sources, label)
}

// Validate checks that at least one source label exists and that the logo,
// when set, is an embedded image.
func (s *CompanySettings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Sources, validation.Required, validation.Length(1, 0)),
		validation.Field(&s.Logo, validation.Match(dataImageURI).Error("must be a base64 image data URI")),
	)
}

// Preferences holds per-installation UI state.
type Preferences struct {
	DarkMode    bool    `json:"darkMode"`
	CurrentUser *string `json:"currentUser"`
}

// Backup is the full-state export artifact.
type Backup struct {
	Customers []Customer      `json:"customers"`
	Settings  CompanySettings `json:"settings"`
}
