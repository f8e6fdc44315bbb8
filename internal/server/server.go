package server

import (
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/api"
)

// LoadSwagger parses and validates the embedded OpenAPI document.
func LoadSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(api.OpenAPISpec)
	if err != nil {
		return nil, err
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, err
	}
	return swagger, nil
}

// NewRouter wires the HTML pages, the JSON API and, when ws is non-nil,
// the websocket endpoint.
func NewRouter(server *Server, ws http.HandlerFunc, logger *zap.Logger) (http.Handler, error) {
	// Load OpenAPI spec for validation
	swagger, err := LoadSwagger()
	if err != nil {
		return nil, err
	}
	swagger.Servers = nil // Allow any host

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(zapLoggerMiddleware(logger))

	// Upgraded connections bypass compression
	if ws != nil {
		r.Get("/ws", ws)
	}

	r.Group(func(r chi.Router) {
		r.Use(compressMiddleware)

		r.Get("/", server.Index)
		r.Get("/ticker", server.Ticker)
		r.Get("/openapi.yaml", openapiHandler)
		r.Get("/docs", swaggerUIHandler)

		// API routes with OpenAPI validation
		r.Group(func(apiRouter chi.Router) {
			apiRouter.Use(oapimiddleware.OapiRequestValidator(swagger))

			apiRouter.Get("/api/v1/health", server.GetHealth)
			apiRouter.Get("/api/v1/sectors", server.GetSectors)
			apiRouter.Get("/api/v1/constituents", server.GetConstituents)
			apiRouter.Get("/api/v1/export", server.ExportConstituents)
			apiRouter.Get("/api/v1/prices", server.GetPrices)
			apiRouter.Post("/api/v1/cache/reset", server.ResetCache)
		})
	})

	return r, nil
}

func compressMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(api.OpenAPISpec)
}

func swaggerUIHandler(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>SP500 Explorer API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.10.3/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.3/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/openapi.yaml",
                dom_id: '#swagger-ui',
            });
        };
    </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(html))
}
