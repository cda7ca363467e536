// Copyright 2026 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package settings

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
)

// Setting is the interface implemented by every registered setting.
type Setting interface {
	Key() string
	Description() string
	// Typ returns the short (1 char) string denoting the type of setting.
	Typ() string
	// Default returns the default value rendered as a string.
	Default() string
	// Validate checks a raw value without storing it.
	Validate(v string) error
}

type common struct {
	key         string
	description string
}

func (c *common) Key() string         { return c.key }
func (c *common) Description() string { return c.description }

// EnumSetting is a setting whose value is one of a fixed set of strings.
type EnumSetting struct {
	common
	defaultValue string
	values       []string
}

var _ Setting = &EnumSetting{}

// RegisterEnumSetting defines a new setting with type enum. The default must
// be one of the allowed values.
func RegisterEnumSetting(key, desc, defaultValue string, values ...string) *EnumSetting {
	s := &EnumSetting{
		common:       common{key: key, description: desc},
		defaultValue: defaultValue,
		values:       values,
	}
	if err := s.Validate(defaultValue); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "invalid default for %s", key))
	}
	register(s)
	return s
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*EnumSetting) Typ() string { return "e" }

// Default returns the default value.
func (s *EnumSetting) Default() string { return s.defaultValue }

// Values returns the allowed values in declaration order.
func (s *EnumSetting) Values() []string { return s.values }

// Validate returns an error if v is not an allowed value.
func (s *EnumSetting) Validate(v string) error {
	for _, allowed := range s.values {
		if allowed == v {
			return nil
		}
	}
	return errors.WithHintf(
		pgerror.Newf(pgcode.InvalidParameterValue, "invalid value for %s: %q", s.key, v),
		"available values: %s", strings.Join(s.values, ", "),
	)
}

// Get returns the configured value, or the default when none is set. An
// unrecognized value is reported here, on first use.
func (s *EnumSetting) Get(sv *Values) (string, error) {
	raw, ok := sv.raw(s.key)
	if !ok {
		return s.defaultValue, nil
	}
	if err := s.Validate(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// BoolSetting is a setting whose value is a boolean.
type BoolSetting struct {
	common
	defaultValue bool
}

var _ Setting = &BoolSetting{}

// RegisterBoolSetting defines a new setting with type bool.
func RegisterBoolSetting(key, desc string, defaultValue bool) *BoolSetting {
	s := &BoolSetting{
		common:       common{key: key, description: desc},
		defaultValue: defaultValue,
	}
	register(s)
	return s
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*BoolSetting) Typ() string { return "b" }

// Default returns the default value.
func (s *BoolSetting) Default() string { return strconv.FormatBool(s.defaultValue) }

// Validate returns an error if v does not parse as a boolean.
func (s *BoolSetting) Validate(v string) error {
	_, err := s.parse(v)
	return err
}

func (s *BoolSetting) parse(v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, pgerror.Newf(pgcode.InvalidParameterValue,
			"invalid value for %s: %q is not a boolean", s.key, v)
	}
	return b, nil
}

// Get returns the configured value, or the default when none is set.
func (s *BoolSetting) Get(sv *Values) (bool, error) {
	raw, ok := sv.raw(s.key)
	if !ok {
		return s.defaultValue, nil
	}
	return s.parse(raw)
}
