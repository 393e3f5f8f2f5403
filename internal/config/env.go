package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LoadEnv overrides config fields from environment variables named by their
// `env` struct tags. Every settings section of AppConfig is visited.
func LoadEnv(config *AppConfig) error {
	val := reflect.ValueOf(config).Elem()
	for i := 0; i < val.NumField(); i++ {
		section := val.Field(i)
		if section.Kind() != reflect.Struct || !section.CanAddr() {
			continue
		}
		if err := processStructEnv(section.Addr().Interface()); err != nil {
			return fmt.Errorf("%s: %w", val.Type().Field(i).Name, err)
		}
	}

	log.Debug().
		Str("APP_ENV", os.Getenv("APP_ENV")).
		Str("DB_HOST", os.Getenv("DB_HOST")).
		Str("EMAIL_HOST", os.Getenv("EMAIL_HOST")).
		Msg("Environment variables loaded")

	return nil
}

// processStructEnv processes environment variables for a struct
func processStructEnv(s interface{}) error {
	val := reflect.ValueOf(s).Elem()
	typ := val.Type()

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		envValue, exists := os.LookupEnv(envName)
		if !exists {
			continue
		}

		if err := setField(fieldVal, envName, envValue); err != nil {
			return err
		}
	}

	return nil
}

func setField(fieldVal reflect.Value, envName, envValue string) error {
	switch fieldVal.Kind() {
	case reflect.String:
		fieldVal.SetString(envValue)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fieldVal.Type() == durationType {
			duration, err := time.ParseDuration(envValue)
			if err != nil {
				return fmt.Errorf("invalid duration for %s: %w", envName, err)
			}
			fieldVal.SetInt(int64(duration))
			return nil
		}
		intValue, err := strconv.ParseInt(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %w", envName, err)
		}
		fieldVal.SetInt(intValue)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintValue, err := strconv.ParseUint(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer for %s: %w", envName, err)
		}
		fieldVal.SetUint(uintValue)

	case reflect.Bool:
		boolValue, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", envName, err)
		}
		fieldVal.SetBool(boolValue)

	case reflect.Slice:
		if fieldVal.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			fieldVal.Set(reflect.ValueOf(values))
		}
	}

	return nil
}
