// Package genconfig resolves the generator hyper-parameters from the stored
// JSON document, applying defaults and per-user overrides.
package genconfig

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/duty-roster/pkg/core/roster"
)

// Key is the config store key holding the generator document
const Key = "generator_config"

// Defaults
const (
	DefaultMaxConsecutiveSameShift   = 4
	DefaultMandatoryRestDays         = 2
	DefaultFillRounds                = 3
	DefaultWunschfreiRespectLevel    = 75
	DefaultMaxMonthlyHours           = 170.0
	DefaultFairnessThresholdHours    = 10.0
	DefaultFairnessScoreMultiplier   = 1.0
	DefaultMinHoursThreshold         = 20.0
	DefaultMinHoursScoreMultiplier   = 5.0
	DefaultIsolationScoreMultiplier  = 30.0
	DefaultAvoidPartnerPenaltyScore  = 10000.0
	DefaultSoftMaxConsecutiveShifts  = 6
	DefaultHardMaxConsecutiveShifts  = 8
	DefaultRatioPreferenceScale      = 50
	DefaultPreferredPartnerNoneScore = 1000

	// RespectThreshold is the respect level from which wishes bind round 1
	RespectThreshold = 50
)

// PartnerPair links two employees with a priority (1 = strongest)
type PartnerPair struct {
	IDA      int `json:"id_a" validate:"required"`
	IDB      int `json:"id_b" validate:"required,nefield=IDA"`
	Priority int `json:"priority" validate:"min=1"`
}

// UserPreferences holds the per-employee overrides
type UserPreferences struct {
	MinMonthlyHours                 *float64 `json:"min_monthly_hours" validate:"omitempty,min=0"`
	MaxMonthlyHours                 *float64 `json:"max_monthly_hours" validate:"omitempty,gt=0"`
	ShiftExclusions                 []string `json:"shift_exclusions"`
	RatioPreferenceScale            *int     `json:"ratio_preference_scale" validate:"omitempty,min=0,max=100"`
	MaxConsecutiveSameShiftOverride *int     `json:"max_consecutive_same_shift_override" validate:"omitempty,min=1"`
}

// Config is the typed generator configuration document
type Config struct {
	ShiftsToPlan              []string                   `json:"shifts_to_plan" validate:"dive,required"`
	MaxConsecutiveSameShift   int                        `json:"max_consecutive_same_shift" validate:"min=1"`
	MandatoryRestDays         int                        `json:"mandatory_rest_days_after_max_shifts" validate:"min=0"`
	GeneratorFillRounds       int                        `json:"generator_fill_rounds" validate:"min=0,max=10"`
	AvoidUnderstaffingHard    bool                       `json:"avoid_understaffing_hard"`
	WunschfreiRespectLevel    int                        `json:"wunschfrei_respect_level" validate:"min=0,max=100"`
	MaxMonthlyHours           float64                    `json:"max_monthly_hours" validate:"gt=0"`
	FairnessThresholdHours    float64                    `json:"fairness_threshold_hours" validate:"min=0"`
	FairnessScoreMultiplier   float64                    `json:"fairness_score_multiplier" validate:"min=0"`
	MinHoursFairnessThreshold float64                    `json:"min_hours_fairness_threshold" validate:"min=0"`
	MinHoursScoreMultiplier   float64                    `json:"min_hours_score_multiplier" validate:"min=0"`
	IsolationScoreMultiplier  float64                    `json:"isolation_score_multiplier" validate:"min=0"`
	AvoidPartnerPenaltyScore  float64                    `json:"avoid_partner_penalty_score" validate:"min=0"`
	SoftMaxConsecutiveShifts  int                        `json:"soft_max_consecutive_shifts" validate:"min=1"`
	HardMaxConsecutiveShifts  int                        `json:"hard_max_consecutive_shifts" validate:"min=1,gtefield=SoftMaxConsecutiveShifts"`
	UserPreferences           map[string]UserPreferences `json:"user_preferences" validate:"dive"`
	PreferredPartnerPairs     []PartnerPair              `json:"preferred_partners_prioritized" validate:"dive"`
	AvoidPartnerPairs         []PartnerPair              `json:"avoid_partners_prioritized" validate:"dive"`

	prefs     map[int]UserPreferences
	preferred map[int][]Partner
	avoid     map[int][]Partner
}

// Partner is one entry of a resolved partner list
type Partner struct {
	Priority int
	UserID   int
}

var validate = validator.New()

// Defaults returns a fully resolved configuration with all defaults applied
func Defaults() *Config {
	cfg := &Config{
		ShiftsToPlan:              slices.Clone(roster.DefaultShiftsToPlan),
		MaxConsecutiveSameShift:   DefaultMaxConsecutiveSameShift,
		MandatoryRestDays:         DefaultMandatoryRestDays,
		GeneratorFillRounds:       DefaultFillRounds,
		AvoidUnderstaffingHard:    true,
		WunschfreiRespectLevel:    DefaultWunschfreiRespectLevel,
		MaxMonthlyHours:           DefaultMaxMonthlyHours,
		FairnessThresholdHours:    DefaultFairnessThresholdHours,
		FairnessScoreMultiplier:   DefaultFairnessScoreMultiplier,
		MinHoursFairnessThreshold: DefaultMinHoursThreshold,
		MinHoursScoreMultiplier:   DefaultMinHoursScoreMultiplier,
		IsolationScoreMultiplier:  DefaultIsolationScoreMultiplier,
		AvoidPartnerPenaltyScore:  DefaultAvoidPartnerPenaltyScore,
		SoftMaxConsecutiveShifts:  DefaultSoftMaxConsecutiveShifts,
		HardMaxConsecutiveShifts:  DefaultHardMaxConsecutiveShifts,
	}
	// Defaults always resolve
	_ = cfg.resolve()
	return cfg
}

// Parse merges the raw JSON document over the defaults and validates it.
// It never returns a nil config: on any error the defaults are returned
// together with the error so the caller can log it and carry on.
func Parse(raw []byte) (*Config, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Defaults(), nil
	}

	cfg := Defaults()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return Defaults(), fmt.Errorf("failed to parse generator config: %w", err)
	}

	// An empty plan list is not an error, it falls back to the default order
	if len(cfg.ShiftsToPlan) == 0 {
		cfg.ShiftsToPlan = slices.Clone(roster.DefaultShiftsToPlan)
	}

	if err := validate.Struct(cfg); err != nil {
		return Defaults(), fmt.Errorf("generator config validation failed: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return Defaults(), err
	}

	return cfg, nil
}

// resolve builds the id-keyed preference map and the symmetric partner maps
func (c *Config) resolve() error {
	c.prefs = make(map[int]UserPreferences, len(c.UserPreferences))
	for key, pref := range c.UserPreferences {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return fmt.Errorf("invalid user id %q in user_preferences: %w", key, err)
		}
		c.prefs[id] = pref
	}

	c.preferred = invertPartners(c.PreferredPartnerPairs)
	c.avoid = invertPartners(c.AvoidPartnerPairs)
	return nil
}

// invertPartners turns the pair list into a symmetric, priority-sorted map
func invertPartners(pairs []PartnerPair) map[int][]Partner {
	result := make(map[int][]Partner)
	for _, pair := range pairs {
		result[pair.IDA] = append(result[pair.IDA], Partner{Priority: pair.Priority, UserID: pair.IDB})
		result[pair.IDB] = append(result[pair.IDB], Partner{Priority: pair.Priority, UserID: pair.IDA})
	}
	for id := range result {
		partners := result[id]
		sort.Slice(partners, func(i, j int) bool {
			if partners[i].Priority != partners[j].Priority {
				return partners[i].Priority < partners[j].Priority
			}
			return partners[i].UserID < partners[j].UserID
		})
	}
	return result
}

// Preferences returns the preferences of a user (zero value if none)
func (c *Config) Preferences(userID int) UserPreferences {
	return c.prefs[userID]
}

// MinMonthlyHours returns the personal minimum, or 0 if unset
func (c *Config) MinMonthlyHours(userID int) float64 {
	if p := c.prefs[userID].MinMonthlyHours; p != nil {
		return *p
	}
	return 0
}

// EffectiveMaxHours returns the per-user ceiling, falling back to the global one
func (c *Config) EffectiveMaxHours(userID int) float64 {
	if p := c.prefs[userID].MaxMonthlyHours; p != nil {
		return *p
	}
	return c.MaxMonthlyHours
}

// MaxSameShift returns the cap on identical shifts in a row for a user
func (c *Config) MaxSameShift(userID int) int {
	if p := c.prefs[userID].MaxConsecutiveSameShiftOverride; p != nil {
		return *p
	}
	return c.MaxConsecutiveSameShift
}

// EffectiveHardMax returns the hard cap on consecutive work days. A user
// override above the global hard cap raises it for that user.
func (c *Config) EffectiveHardMax(userID int) int {
	if p := c.prefs[userID].MaxConsecutiveSameShiftOverride; p != nil && *p > c.HardMaxConsecutiveShifts {
		return *p
	}
	return c.HardMaxConsecutiveShifts
}

// RatioPreference returns the preferred fraction of T./6 among T./6 + N.
func (c *Config) RatioPreference(userID int) float64 {
	if p := c.prefs[userID].RatioPreferenceScale; p != nil {
		return float64(*p) / 100
	}
	return float64(DefaultRatioPreferenceScale) / 100
}

// IsExcluded reports whether the user must never get abbr
func (c *Config) IsExcluded(userID int, abbr string) bool {
	return slices.Contains(c.prefs[userID].ShiftExclusions, abbr)
}

// PreferredPartners returns the prefer-together partners of a user, best first
func (c *Config) PreferredPartners(userID int) []Partner {
	return c.preferred[userID]
}

// AvoidPartners returns the avoid-together partners of a user, strongest first
func (c *Config) AvoidPartners(userID int) []Partner {
	return c.avoid[userID]
}

// RespectsWishes reports whether pending wishes bind round 1
func (c *Config) RespectsWishes() bool {
	return c.WunschfreiRespectLevel >= RespectThreshold
}

// IsPlannable reports whether abbr is in the shifts-to-plan list
func (c *Config) IsPlannable(abbr string) bool {
	return slices.Contains(c.ShiftsToPlan, abbr)
}
