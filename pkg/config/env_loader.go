/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/satconnect/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

// EnvConfigLoader loads configuration from environment variables.
// Nested struct fields use underscore separation: SATCONNECT_LOGGING_LEVEL maps to
// config.Logging.Level.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader by reading from environment variables.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	// A complete JSON document in <prefix>CONFIG_JSON wins over individual variables.
	if jsonConfig := os.Getenv(e.prefix + "CONFIG_JSON"); jsonConfig != "" {
		if err := json.Unmarshal([]byte(jsonConfig), dst); err != nil {
			return fmt.Errorf("failed to unmarshal CONFIG_JSON: %w", err)
		}

		e.logger.Info().Msg("Loaded configuration from CONFIG_JSON environment variable")

		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	return e.loadStruct(v, e.prefix)
}

func (e *EnvConfigLoader) loadStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		jsonTag := fieldType.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		name := strings.Split(jsonTag, ",")[0]
		envName := prefix + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))

		if err := e.setField(field, envName); err != nil {
			return err
		}
	}

	return nil
}

func (e *EnvConfigLoader) setField(field reflect.Value, envName string) error {
	if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
		if !e.anyWithPrefix(envName + "_") {
			return nil
		}

		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		return e.loadStruct(field.Elem(), envName+"_")
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok || envValue == "" {
		return nil
	}

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		field = field.Elem()
	}

	if err := setScalar(field, envName, envValue); err != nil {
		return err
	}

	e.logger.Debug().Str("env", envName).Msg("Loaded value from environment variable")

	return nil
}

func (e *EnvConfigLoader) anyWithPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}

	return false
}

func setScalar(field reflect.Value, envName, envValue string) error {
	//nolint:exhaustive // every other kind is rejected below
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Bool:
		b, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", envName, err)
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		// Named duration types accept "2s" as well as nanoseconds.
		if strings.HasSuffix(field.Type().Name(), "Duration") {
			if d, err := time.ParseDuration(envValue); err == nil {
				field.SetInt(int64(d))
				return nil
			}
		}

		i, err := strconv.ParseInt(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", envName, err)
		}

		field.SetInt(i)
	default:
		if err := json.Unmarshal([]byte(envValue), field.Addr().Interface()); err != nil {
			return fmt.Errorf("unsupported type %s for %s: %w", field.Kind(), envName, err)
		}
	}

	return nil
}
