package openapi

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

var timeType = reflect.TypeOf(time.Time{})

// schemaRegistry turns Go types into component schemas. Named structs are
// registered once and referenced afterwards.
type schemaRegistry struct {
	components openapi3.Schemas
	names      map[reflect.Type]string
	enums      map[string][]any
}

func newSchemaRegistry(components openapi3.Schemas) *schemaRegistry {
	return &schemaRegistry{
		components: components,
		names:      map[reflect.Type]string{},
		enums:      map[string][]any{},
	}
}

func (r *schemaRegistry) refFor(example any) *openapi3.SchemaRef {
	if example == nil {
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}
	return r.fromType(reflect.TypeOf(example))
}

func (r *schemaRegistry) fromType(t reflect.Type) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		ref := r.fromType(t.Elem())
		if ref.Ref != "" {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{ref}, Nullable: true}}
		}
		ref.Value.Nullable = true
		return ref
	}

	if t == timeType {
		return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()}
	}

	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema()}
	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema()}
	case reflect.Slice, reflect.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = r.fromType(t.Elem())
		return &openapi3.SchemaRef{Value: schema}
	case reflect.Map:
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: r.fromType(t.Elem())}
		return &openapi3.SchemaRef{Value: schema}
	case reflect.Struct:
		return r.fromStruct(t)
	default:
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}
}

func (r *schemaRegistry) fromStruct(t reflect.Type) *openapi3.SchemaRef {
	if t.Name() == "" {
		return &openapi3.SchemaRef{Value: r.structSchema(t)}
	}

	if name, ok := r.names[t]; ok {
		return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
	}

	name := t.Name()
	for i := 2; r.components[name] != nil; i++ {
		name = t.Name() + strconv.Itoa(i)
	}
	r.names[t] = name
	// registered before the fields are walked so self references terminate
	r.components[name] = &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	r.components[name].Value = r.structSchema(t)

	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func (r *schemaRegistry) structSchema(t reflect.Type) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Properties = make(openapi3.Schemas)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitempty, skip := jsonName(field)
		if skip {
			continue
		}

		ref := r.fromType(field.Type)
		required := r.applyValidation(ref, field.Tag.Get("validate"))
		schema.Properties[name] = ref

		if required || (!omitempty && field.Tag.Get("validate") == "" && field.Type.Kind() != reflect.Pointer) {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

func jsonName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = field.Name
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

// applyValidation mirrors validator tags onto the schema and reports whether
// the field is required.
func (r *schemaRegistry) applyValidation(ref *openapi3.SchemaRef, tag string) bool {
	if tag == "" || ref.Value == nil {
		return false
	}

	required := false
	s := ref.Value
	for _, rule := range strings.Split(tag, ",") {
		key, param, _ := strings.Cut(rule, "=")
		switch key {
		case "required":
			required = true
		case "email":
			s.Format = "email"
		case "uuid":
			s.Format = "uuid"
		case "min":
			if n, err := strconv.ParseUint(param, 10, 64); err == nil {
				s.MinLength = n
			}
		case "max":
			if n, err := strconv.ParseUint(param, 10, 64); err == nil {
				s.MaxLength = &n
			}
		case "oneof":
			for _, v := range strings.Fields(param) {
				s.Enum = append(s.Enum, v)
			}
		default:
			if values, ok := r.enums[key]; ok {
				s.Enum = values
			}
		}
	}
	return required
}

// Enum converts typed string constants for EnumTag.
func Enum[T ~string](values ...T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
