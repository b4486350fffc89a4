// Package profile manages the hierarchical identity configuration: a
// global "who am I" profile plus declarative per-folder add/remove deltas.
package profile

import (
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// UserInfo holds identity facts used to suppress self-matches during
// supplier extraction.
type UserInfo struct {
	Names     []string `json:"names" mapstructure:"names"`
	Addresses []string `json:"addresses" mapstructure:"addresses"`
	Companies []string `json:"companies" mapstructure:"companies"`
	Emails    []string `json:"emails" mapstructure:"emails"`
	Phones    []string `json:"phones" mapstructure:"phones"`
}

// RecipientZone configures addressee-region detection.
type RecipientZone struct {
	Keywords []string `json:"keywords" mapstructure:"keywords"`
}

// SupplierZone configures supplier-line scoring context.
type SupplierZone struct {
	PreferBeforeKeywords []string `json:"prefer_before_keywords" mapstructure:"prefer_before_keywords"`
	AvoidAfterKeywords   []string `json:"avoid_after_keywords" mapstructure:"avoid_after_keywords"`
}

// ExtractionZones groups the zone keyword sets.
type ExtractionZones struct {
	RecipientZone RecipientZone `json:"recipient_zone" mapstructure:"recipient_zone"`
	SupplierZone  SupplierZone  `json:"supplier_zone" mapstructure:"supplier_zone"`
}

// Effective is the fully-merged per-folder profile consumed by extractors.
// It is a typed view over the resolved config tree.
type Effective struct {
	FolderName        string            `mapstructure:"folder_name"`
	FolderDescription string            `mapstructure:"folder_description"`
	UserInfo          UserInfo          `mapstructure:"user_info"`
	SupplierMappings  map[string]string `mapstructure:"supplier_mappings"`
	ExtractionZones   ExtractionZones   `mapstructure:"extraction_zones"`
}

// FolderDelta describes how one folder's profile differs from global.
// Add only introduces or extends entries; Remove only deletes
// previously-present ones.
type FolderDelta struct {
	Description string         `json:"description"`
	Add         map[string]any `json:"add"`
	Remove      map[string]any `json:"remove"`
}

// ContainsUserInfo reports whether the line mentions any configured
// identity string (name, address or company), case-insensitively.
func (e *Effective) ContainsUserInfo(line string) bool {
	lower := strings.ToLower(line)
	for _, group := range [][]string{e.UserInfo.Names, e.UserInfo.Addresses, e.UserInfo.Companies} {
		for _, s := range group {
			if s != "" && strings.Contains(lower, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}

// MapSupplier returns the configured short name for a supplier, matching
// mapping keys as case-insensitive substrings of the extracted name.
func (e *Effective) MapSupplier(supplier string) string {
	lower := strings.ToLower(supplier)
	for full, short := range e.SupplierMappings {
		if strings.Contains(lower, strings.ToLower(full)) {
			return short
		}
	}
	return supplier
}

// decodeEffective converts a resolved config tree into the typed view.
func decodeEffective(tree map[string]any) (*Effective, error) {
	var eff Effective
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &eff,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(tree); err != nil {
		return nil, err
	}
	return &eff, nil
}
