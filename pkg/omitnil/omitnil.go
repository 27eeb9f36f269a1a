package omitnil

import (
	"reflect"
)

// Fields drops nil values and nil pointers from fields and dereferences the
// remaining pointers.
func Fields(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			omitted[key] = v.Elem().Interface()
			continue
		}

		omitted[key] = value
	}

	return omitted
}

// Args flattens fields into slog style key/value pairs.
func Args(fields map[string]any) []any {
	omitted := Fields(fields)
	args := make([]any, 0, 2*len(omitted))
	for key, value := range omitted {
		args = append(args, key, value)
	}

	return args
}
