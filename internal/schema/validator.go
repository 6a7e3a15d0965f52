// internal/schema/validator.go
// Package schema checks content API responses against JSON schema contracts
// before they are decoded into wire records.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/immoshift/immoshift-web/internal/metrics"
)

// Contract names, one per consumed endpoint.
const (
	Article          = "article"
	Training         = "training"
	Ebook            = "ebook"
	Home             = "home"
	DownloadResponse = "download_response"
)

// Shared fragments. Optional API fields may be null.
const (
	nullableString = `{"type":["string","null"]}`
	nullableNumber = `{"type":["number","null"]}`
	// decimals arrive as quoted strings; the pattern only applies to strings
	nullableAmount = `{"type":["number","string","null"],"pattern":"^-?[0-9]+(\\.[0-9]+)?$"}`
	paragraphDef   = `{"type":"object","required":["id"],"properties":{` +
		`"id":{"type":"integer"},"title":` + nullableString + `,"content":` + nullableString + `,` +
		`"media_type":` + nullableString + `,"image":` + nullableString + `,"video_url":` + nullableString + `,` +
		`"video_file":` + nullableString + `,"thumbnail":` + nullableString + `,` +
		`"file_size_mb":` + nullableNumber + `,"position":{"type":"integer"}}}`
	identity = `"id":{"type":"integer"},"title":{"type":"string"},"slug":{"type":"string"}`
)

var contracts = map[string]string{
	Article: `{"type":"object","required":["id","title","slug"],"properties":{` + identity + `,` +
		`"excerpt":` + nullableString + `,"image":` + nullableString + `,` +
		`"author":{"type":["object","null"],"properties":{"name":{"type":"string"},"picture":` + nullableString + `}},` +
		`"paragraphs":{"type":["array","null"],"items":` + paragraphDef + `}}}`,

	Training: `{"type":"object","required":["id","title","slug"],"properties":{` + identity + `,` +
		`"image":` + nullableString + `,"video_url":` + nullableString + `,"price":` + nullableAmount + `,` +
		`"show_price":{"type":"boolean"},` +
		`"paragraphs":{"type":["array","null"],"items":` + paragraphDef + `}}}`,

	Ebook: `{"type":"object","required":["id","title","slug"],"properties":{` + identity + `,` +
		`"description":` + nullableString + `,"cover_image":` + nullableString + `,"file":` + nullableString + `}}`,

	Home: `{"type":"object","properties":{` +
		`"testimonials":{"type":["array","null"],"items":{"type":"object","required":["id"],"properties":{"rating":{"type":"number"}}}},` +
		`"trainings":{"type":["array","null"],"items":{"type":"object","required":["id","slug"],"properties":{"price":` + nullableAmount + `}}},` +
		`"articles":{"type":["array","null"],"items":{"type":"object","required":["id","slug"]}},` +
		`"ebooks":{"type":["array","null"],"items":{"type":"object","required":["id","slug"]}}}}`,

	DownloadResponse: `{"type":"object","required":["success"],"properties":{` +
		`"success":{"type":"boolean"},"download_url":` + nullableString + `,"message":` + nullableString + `}}`,
}

// Validator holds the compiled contracts.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
	metrics *metrics.Metrics
}

// NewValidator compiles every contract. m may be nil.
func NewValidator(m *metrics.Metrics) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(contracts)), metrics: m}
	for name, src := range contracts {
		if err := v.loadSchema(name, src); err != nil {
			return nil, fmt.Errorf("failed to load schemas: %w", err)
		}
	}
	return v, nil
}

// MustNewValidator is NewValidator for package-level wiring; the contracts
// are constants, so a failure is a programming error.
func MustNewValidator(m *metrics.Metrics) *Validator {
	v, err := NewValidator(m)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Validator) loadSchema(name, schemaJSON string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", name, err)
	}
	v.schemas[name] = schema
	return nil
}

// Validate checks body against the named contract.
func (v *Validator) Validate(contract string, body []byte) (err error) {
	defer func() {
		if v.metrics == nil {
			return
		}
		status := "valid"
		if err != nil {
			status = "invalid"
		}
		v.metrics.ContractValidationTotal.WithLabelValues(contract, status).Inc()
	}()

	schema, exists := v.schemas[contract]
	if !exists {
		return fmt.Errorf("unknown contract: %s", contract)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("%s contract violated: %s", contract, strings.Join(errs, "; "))
	}
	return nil
}
