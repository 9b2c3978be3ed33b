package http

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

var (
	swaggerOnce sync.Once
	swagger     *openapi3.T
	swaggerErr  error
)

func rawSpec() ([]byte, error) {
	if len(openapiSpec) == 0 {
		return nil, fmt.Errorf("openapi spec not embedded")
	}
	return openapiSpec, nil
}

// GetSwagger returns the parsed and validated OpenAPI document served by the handler.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openapiSpec)
		if err != nil {
			swaggerErr = fmt.Errorf("error loading spec: %w", err)
			return
		}
		if err := doc.Validate(loader.Context); err != nil {
			swaggerErr = fmt.Errorf("invalid spec: %w", err)
			return
		}
		swagger = doc
	})
	return swagger, swaggerErr
}
