package settings

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
)

// Section names form a closed set; anything else is rejected up front.
const (
	SectionSecurity      = "security"
	SectionNotifications = "notifications"
	SectionPrivacy       = "privacy"
	SectionAdvanced      = "advanced"
	SectionDisplay       = "display"
)

var Sections = []string{
	SectionSecurity,
	SectionNotifications,
	SectionPrivacy,
	SectionAdvanced,
	SectionDisplay,
}

func ValidSection(name string) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Per-section patch shapes. Pointer fields make sparse patches explicit:
// only keys present in the request are merged into the stored section.
type (
	Security struct {
		TwoFactorEnabled *bool `json:"two_factor_enabled,omitempty"`
		LoginAlerts      *bool `json:"login_alerts,omitempty"`
	}

	Notifications struct {
		EmailEnabled      *bool `json:"email_enabled,omitempty"`
		SMSEnabled        *bool `json:"sms_enabled,omitempty"`
		BirthdayReminders *bool `json:"birthday_reminders,omitempty"`
		WeeklySummary     *bool `json:"weekly_summary,omitempty"`
	}

	Privacy struct {
		ShareProfile *bool `json:"share_profile,omitempty"`
		ShowBirthday *bool `json:"show_birthday,omitempty"`
	}

	Advanced struct {
		Language *string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
		Timezone *string `json:"timezone,omitempty" validate:"omitempty,timezone"`
	}

	Display struct {
		Theme       *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
		CompactMode *bool   `json:"compact_mode,omitempty"`
	}
)

var defaults = map[string]map[string]interface{}{
	SectionSecurity:      {"two_factor_enabled": false, "login_alerts": true},
	SectionNotifications: {"email_enabled": true, "sms_enabled": false, "birthday_reminders": true, "weekly_summary": false},
	SectionPrivacy:       {"share_profile": true, "show_birthday": true},
	SectionAdvanced:      {"language": "en", "timezone": "UTC"},
	SectionDisplay:       {"theme": "system", "compact_mode": false},
}

// Defaults returns the out-of-the-box values for a section.
func Defaults(section string) map[string]interface{} {
	values := make(map[string]interface{}, len(defaults[section]))
	for k, v := range defaults[section] {
		values[k] = v
	}
	return values
}

// ParsePatch decodes and validates a sparse patch for the named section.
// Unknown sections and unknown keys are both rejected.
func ParsePatch(section string, raw []byte) (map[string]interface{}, error) {
	shape, err := shapeFor(section)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(shape); err != nil {
		return nil, core.NewValidationError(errors.Wrapf(err, "invalid %s settings", section))
	}
	if err := core.Validate.Struct(shape); err != nil {
		return nil, err
	}

	// re-marshal: omitempty pointers leave only the keys that were set
	buf, err := json.Marshal(shape)
	if err != nil {
		return nil, err
	}
	patch := make(map[string]interface{})
	if err := json.Unmarshal(buf, &patch); err != nil {
		return nil, err
	}
	return patch, nil
}

// Merge lays a sparse patch over current values, starting from defaults.
func Merge(section string, current, patch map[string]interface{}) map[string]interface{} {
	merged := Defaults(section)
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func shapeFor(section string) (interface{}, error) {
	switch section {
	case SectionSecurity:
		return &Security{}, nil
	case SectionNotifications:
		return &Notifications{}, nil
	case SectionPrivacy:
		return &Privacy{}, nil
	case SectionAdvanced:
		return &Advanced{}, nil
	case SectionDisplay:
		return &Display{}, nil
	}
	return nil, core.NewValidationError(errors.Errorf("unknown settings section %q", section))
}
