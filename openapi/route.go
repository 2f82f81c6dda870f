package openapi

import (
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

type RouteBuilder struct {
	doc       *Document
	method    string
	path      string
	operation *openapi3.Operation
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

func (rb *RouteBuilder) QueryParam(name, description string, required bool) *RouteBuilder {
	rb.operation.Parameters = append(rb.operation.Parameters, &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        name,
			In:          "query",
			Description: description,
			Required:    required,
			Schema:      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
		},
	})
	return rb
}

// Body documents a JSON request body shaped like example. Fields tagged
// json:"-" are left out, since they are bound from the path.
func (rb *RouteBuilder) Body(example any) *RouteBuilder {
	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{Schema: rb.doc.schemaFor(example)},
			},
		},
	}
	return rb
}

func (rb *RouteBuilder) Response(statusCode int, example any, description string) *RouteBuilder {
	var content openapi3.Content
	if example != nil {
		content = openapi3.Content{
			"application/json": &openapi3.MediaType{Schema: rb.doc.schemaFor(example)},
		}
	}

	rb.operation.Responses.Set(strconv.Itoa(statusCode), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     content,
		},
	})
	return rb
}

func (rb *RouteBuilder) Security(schemes ...string) *RouteBuilder {
	if rb.operation.Security == nil {
		rb.operation.Security = &openapi3.SecurityRequirements{}
	}
	for _, scheme := range schemes {
		*rb.operation.Security = append(*rb.operation.Security, openapi3.SecurityRequirement{scheme: []string{}})
	}
	return rb
}

func (rb *RouteBuilder) Build() {
	rb.doc.add(rb.method, rb.path, rb.operation)
}
