// Package yaconfig fills configuration structs from the environment.
//
// A field named FooBar is read from FOO_BAR; fields of a nested struct are
// prefixed with the parent key (Log.Level reads LOG_LEVEL). Precedence is
// environment, then a value already present in the struct, then the default
// tag. A field that is zero and carries no default tag is required; tag it
// with `default:""` to make it optional.
package yaconfig

import (
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	DefaultTagName = "default"
	DotEnvFile     = ".env"
	ListSeparator  = ","
)

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")

	durationType        = reflect.TypeFor[time.Duration]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Load reads .env (a missing file is only a warning) and fills instance.
//
// Example usage:
//
//	var cfg yaconfig.Bot
//	if err := yaconfig.Load(&cfg, log); err != nil {
//	    log.Fatalf("Bad config: %v", err)
//	}
func Load[T any](instance *T, log yalogger.Logger) yaerrors.Error {
	if err := godotenv.Load(DotEnvFile); err != nil {
		log.Warnf("Error loading .env file: %v", err)
	}

	return LoadFromEnv(instance, log)
}

// LoadFromEnv fills instance from the process environment only.
func LoadFromEnv[T any](instance *T, log yalogger.Logger) yaerrors.Error {
	value := reflect.ValueOf(instance).Elem()
	if value.Kind() != reflect.Struct {
		return yaerrors.FromErrorWithLog(
			http.StatusInternalServerError,
			ErrConfigMustBeStruct,
			fmt.Sprintf("config loader, got %T", instance),
			log,
		)
	}

	return loadStruct(value, "", log)
}

func loadStruct(structValue reflect.Value, keyPath string, log yalogger.Logger) yaerrors.Error {
	structType := structValue.Type()

	for i := range structValue.NumField() {
		field := structType.Field(i)
		fieldVal := structValue.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		envKey := toScreamingSnakeCase(field.Name)
		if keyPath != "" {
			envKey = keyPath + "_" + envKey
		}

		if field.Type.Kind() == reflect.Struct && !isScalar(fieldVal) {
			if err := loadStruct(fieldVal, envKey, log); err != nil {
				return err.Wrap("failed to load struct field " + field.Name)
			}

			continue
		}

		defaultVal, hasDefault := field.Tag.Lookup(DefaultTagName)

		raw, fromEnv := os.LookupEnv(envKey)

		switch {
		case fromEnv:
		case !fieldVal.IsZero():
			continue
		case hasDefault && defaultVal != "":
			raw = defaultVal
		case hasDefault:
			continue
		default:
			return yaerrors.FromErrorWithLog(
				http.StatusInternalServerError,
				ErrValueIsRequired,
				"config loader: "+envKey,
				log,
			)
		}

		if err := setValue(fieldVal, raw); err != nil {
			return yaerrors.FromErrorWithLog(
				http.StatusInternalServerError,
				err,
				fmt.Sprintf("config loader: %s=%q", envKey, raw),
				log,
			)
		}
	}

	return nil
}

func isScalar(value reflect.Value) bool {
	return value.Addr().Type().Implements(textUnmarshalerType)
}

func setValue(value reflect.Value, raw string) error {
	if value.CanAddr() && value.Addr().Type().Implements(textUnmarshalerType) {
		unmarshaler, _ := value.Addr().Interface().(encoding.TextUnmarshaler)

		return unmarshaler.UnmarshalText([]byte(raw))
	}

	if value.Type() == durationType {
		parsed, err := cast.ToDurationE(raw)
		if err != nil {
			return err
		}

		value.SetInt(int64(parsed))

		return nil
	}

	switch value.Kind() {
	case reflect.String:
		value.SetString(raw)
	case reflect.Bool:
		parsed, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}

		value.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := cast.ToInt64E(raw)
		if err != nil {
			return err
		}

		if value.OverflowInt(parsed) {
			return ErrOverflow
		}

		value.SetInt(parsed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := cast.ToUint64E(raw)
		if err != nil {
			return err
		}

		if value.OverflowUint(parsed) {
			return ErrOverflow
		}

		value.SetUint(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}

		value.SetFloat(parsed)
	case reflect.Slice:
		return setSlice(value, raw)
	default:
		return errors.Join(ErrUnsupportedType, fmt.Errorf("%s", value.Type()))
	}

	return nil
}

func setSlice(value reflect.Value, raw string) error {
	parts := strings.Split(raw, ListSeparator)
	out := reflect.MakeSlice(value.Type(), 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		elem := reflect.New(value.Type().Elem()).Elem()
		if err := setValue(elem, part); err != nil {
			return err
		}

		out = reflect.Append(out, elem)
	}

	value.Set(out)

	return nil
}

// toScreamingSnakeCase turns HTTPResponse into HTTP_RESPONSE and AppID into APP_ID.
func toScreamingSnakeCase(s string) string {
	s = matchFirstCap.ReplaceAllString(s, "${1}_${2}")
	s = matchAllCap.ReplaceAllString(s, "${1}_${2}")

	return strings.ToUpper(s)
}
