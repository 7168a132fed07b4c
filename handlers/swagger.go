package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the Swagger UI and OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>runsum API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the public routes.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "runsum", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "session": { "type": "apiKey", "in": "cookie", "name": "access_token_cookie" } },
    "schemas": { "Error": { "type": "object", "properties": { "error": { "type": "string" } } } }
  },
  "paths": {
    "/api/auth/login": {
      "post": {
        "summary": "Exchange a Strava authorization code and start a session",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["code"],"properties":{"code":{"type":"string"}}}}}},
        "responses": { "200": { "description": "first_name, id, success; sets session and CSRF cookies" }, "400": { "description": "code missing" }, "401": { "description": "exchange rejected" }, "500": { "description": "upstream or store failure" } }
      }
    },
    "/api/auth/logout": {
      "post": { "summary": "Clear the session and CSRF cookies", "responses": { "200": { "description": "msg" } } }
    },
    "/api/auth/whoami": {
      "get": { "summary": "Stored profile of the session athlete", "security": [{"session": []}], "responses": { "200": { "description": "first_name, last_name, id, success" }, "401": { "description": "no valid session" }, "404": { "description": "athlete not stored" } } }
    },
    "/api/activities": {
      "get": {
        "summary": "All activities in [after, before) starting at page",
        "security": [{"session": []}],
        "parameters": [
          { "name": "after", "in": "query", "required": true, "schema": { "type": "string" }, "description": "unix seconds or ISO-8601" },
          { "name": "before", "in": "query", "required": true, "schema": { "type": "string" }, "description": "unix seconds or ISO-8601" },
          { "name": "page", "in": "query", "required": true, "schema": { "type": "integer", "minimum": 1 } }
        ],
        "responses": { "200": { "description": "activities, count, success" }, "400": { "description": "missing or invalid parameters" }, "401": { "description": "no valid session or refresh failed" }, "404": { "description": "athlete not stored" }, "500": { "description": "upstream failure" } }
      }
    },
    "/api/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "status, service" } } } },
    "/api/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
