// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/xhit/go-str2duration/v2"

	"github.com/greenmaskio/etlmodel/internal/model"
)

// StringToDurationHookFunc - parses durations with day and week units (e.g. 1d12h, 2w)
func StringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		raw := data.(string)
		if raw == "" {
			return time.Duration(0), nil
		}
		d, err := str2duration.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot parse duration \"%s\": %w", raw, err)
		}
		return d, nil
	}
}

// StringToNonWorkTableHandlingHookFunc - parses propagate, map or none
func StringToNonWorkTableHandlingHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(model.NonWorkTableHandling(0)) {
			return data, nil
		}
		return model.ParseNonWorkTableHandling(data.(string))
	}
}
