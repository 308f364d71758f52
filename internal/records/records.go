// Package records loads profiles and postings from YAML or JSON files.
package records

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-matcher/internal/matching"
)

// ErrNoRecords is returned when a file holds no records at all.
var ErrNoRecords = errors.New("no records found")

// listKeys are accepted as wrappers around a record list.
var listKeys = []string{"items", "profiles", "postings", "candidates", "vacancies"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadProfiles reads every profile from path.
func LoadProfiles(path string) ([]matching.Profile, error) {
	return load[matching.Profile](path)
}

// LoadPostings reads every posting from path.
func LoadPostings(path string) ([]matching.Posting, error) {
	return load[matching.Posting](path)
}

// LoadProfile reads a file that must hold exactly one profile.
func LoadProfile(path string) (matching.Profile, error) {
	return loadOne[matching.Profile](path)
}

// LoadPosting reads a file that must hold exactly one posting.
func LoadPosting(path string) (matching.Posting, error) {
	return loadOne[matching.Posting](path)
}

func loadOne[T any](path string) (T, error) {
	var zero T
	items, err := load[T](path)
	if err != nil {
		return zero, err
	}
	if len(items) != 1 {
		return zero, fmt.Errorf("%s: expected a single record, got %d", path, len(items))
	}
	return items[0], nil
}

func load[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	items, err := Decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Decode parses YAML or JSON holding a single record, a list of records or a
// map with one of the list keys.
func Decode[T any](data []byte) ([]T, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}

	raw, err := recordList(root)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := decodeRecord(r, &item); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := validate.Struct(item); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, item)
	}

	return items, nil
}

func recordList(root any) ([]any, error) {
	switch v := root.(type) {
	case nil:
		return nil, ErrNoRecords
	case []any:
		if len(v) == 0 {
			return nil, ErrNoRecords
		}
		return v, nil
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				if len(list) == 0 {
					return nil, ErrNoRecords
				}
				return list, nil
			}
		}
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("unexpected records document of type %T", root)
	}
}

func decodeRecord(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(ageHook, singleValueSalaryHook),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// ageHook accepts a single age ("age: 30") as a one-point range.
func ageHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(matching.AgeRange{}) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int64, reflect.Float64, reflect.String:
		v := fmt.Sprint(data)
		return map[string]any{"from": v, "to": v}, nil
	default:
		return data, nil
	}
}

// singleValueSalaryHook accepts a single number ("salary: 200000") as a one-point range.
// Open-ended ranges are written as a map without "to".
func singleValueSalaryHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(matching.SalaryRange{}) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int64, reflect.Float64:
		return map[string]any{"from": data, "to": data}, nil
	default:
		return data, nil
	}
}
