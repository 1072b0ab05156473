//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// MountSwagger serves the generated OpenAPI docs at /swagger/. The spec is
// registered by the generated docs package under cmd/inferd when built with
// -tags=swagger.
func MountSwagger(r chi.Router) {
	if _, err := swag.ReadDoc(); err != nil && zlog != nil {
		// No generated spec registered. Mount anyway so the UI reports it.
		zlog.Warn().Err(err).Msg("swagger spec not registered")
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
