package rest

// FieldType enumerates the primitive types a parameter schema can declare.
type FieldType int

const (
	// TypeString matches any JSON string value.
	TypeString FieldType = iota

	// TypeNumber matches any JSON numeric value, including query values
	// coerced to integers at message construction.
	TypeNumber

	// TypeObject matches a JSON object and validates its fields against a
	// nested schema.
	TypeObject
)

// Field declares the expected type of a single parameter. For TypeObject
// fields, Fields holds the nested schema validated recursively.
type Field struct {
	Type   FieldType
	Fields Schema
}

// Schema maps parameter names to their declared types. Schemas are purely
// descriptive: they are declared once per handler per verb and never mutated
// at request time.
type Schema map[string]Field

// String declares a required string parameter.
func String() Field {
	return Field{Type: TypeString}
}

// Number declares a required numeric parameter.
func Number() Field {
	return Field{Type: TypeNumber}
}

// Object declares a required object parameter whose fields are validated
// against the given nested schema.
func Object(fields Schema) Field {
	return Field{Type: TypeObject, Fields: fields}
}

// ParameterSchema groups per-namespace schemas for one (verb, route) pair.
// A nil namespace schema means no required parameters in that namespace.
type ParameterSchema struct {
	Body  Schema
	Path  Schema
	Query Schema
}

// validate checks that every key in the schema is present in params with a
// value of the declared type. Unknown extra keys in params are ignored so
// forward-compatible clients are not rejected. The prefix carries the dotted
// key path for error reporting on nested schemas.
func (s Schema) validate(params Params, prefix string) error {
	for key, field := range s {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		value, ok := params[key]
		if !ok {
			return NewRequestInitializationError(path, "is missing")
		}

		switch field.Type {
		case TypeString:
			if _, ok := value.(string); !ok {
				return NewRequestInitializationError(path, "must be a string")
			}
		case TypeNumber:
			if !isNumber(value) {
				return NewRequestInitializationError(path, "must be a number")
			}
		case TypeObject:
			nested, ok := toParams(value)
			if !ok {
				return NewRequestInitializationError(path, "must be an object")
			}
			if err := field.Fields.validate(nested, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// isNumber reports whether the value is one of the numeric representations
// produced by JSON decoding or query coercion.
func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

// toParams converts a decoded JSON object into a Params map.
func toParams(value any) (Params, bool) {
	switch v := value.(type) {
	case Params:
		return v, true
	case map[string]any:
		return Params(v), true
	}
	return nil, false
}
