package httpapi

import "net/http"

// swaggerDoc is a hand-maintained OpenAPI description of the read-only
// surface, served at /swagger/doc.json for the swaggo/http-swagger UI
// mounted at /swagger/. Kept minimal: this surface has six routes and no
// request bodies, so generating it from struct annotations would add a
// build step for no real benefit.
const swaggerDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "repochecker",
    "description": "Read-only repository-closure audit results.",
    "version": "1.0"
  },
  "basePath": "/",
  "schemes": ["http"],
  "paths": {
    "/": {
      "get": {
        "summary": "HTML index of releases with broken-item counts",
        "produces": ["text/html"],
        "responses": { "200": { "description": "OK" } }
      }
    },
    "/data/{release}": {
      "get": {
        "summary": "Broken items for one matrix entry key",
        "produces": ["application/json"],
        "parameters": [
          { "name": "release", "in": "path", "required": true, "type": "string" }
        ],
        "responses": {
          "200": { "description": "OK" },
          "404": { "description": "no published data for that key" }
        }
      }
    },
    "/config": {
      "get": {
        "summary": "Active configuration, rendered as TOML",
        "produces": ["application/toml"],
        "responses": {
          "200": { "description": "OK" },
          "503": { "description": "configuration not loaded yet" }
        }
      }
    },
    "/overrides": {
      "get": {
        "summary": "Active override tree",
        "produces": ["application/json"],
        "responses": {
          "200": { "description": "OK" },
          "503": { "description": "overrides not loaded yet" }
        }
      }
    },
    "/stats": {
      "get": {
        "summary": "Override hit counts by leaf path",
        "produces": ["application/json"],
        "responses": { "200": { "description": "OK" } }
      }
    },
    "/ws/events": {
      "get": {
        "summary": "Upgrade to a websocket feed of cycle_complete events",
        "responses": { "101": { "description": "switching protocols" } }
      }
    }
  }
}
`

func serveSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(swaggerDoc))
}
