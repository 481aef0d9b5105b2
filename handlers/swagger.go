package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API description.
// - GET /swagger/index.html  -> Swagger UI page loading the JSON below
// - GET /swagger/doc.json    -> OpenAPI document
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
    <title>userstore - Swagger</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "userstore", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "User": {
        "type": "object",
        "required": ["age"],
        "properties": {
          "id": {"type":"string","readOnly":true},
          "firstName": {"type":"string"},
          "age": {"type":"integer","minimum":1,"maximum":129},
          "email": {"type":"string","minLength":5,"maxLength":45},
          "createdAt": {"type":"string","format":"date-time","readOnly":true},
          "updatedAt": {"type":"string","format":"date-time","readOnly":true},
          "bestFriend": {"description":"user id, or the user when populated"},
          "hobbies": {"type":"array","items":{"type":"string"}},
          "address": {"type":"object","properties":{"street":{"type":"string"},"city":{"type":"string"}}}
        }
      }
    }
  },
  "paths": {
    "/api/users": {
      "get": {
        "summary": "Find users",
        "parameters": [
          {"name":"firstName","in":"query","schema":{"type":"string"}},
          {"name":"minAge","in":"query","schema":{"type":"integer"}},
          {"name":"maxAge","in":"query","schema":{"type":"integer"}},
          {"name":"limit","in":"query","schema":{"type":"integer"}},
          {"name":"fields","in":"query","description":"comma separated projection","schema":{"type":"string"}},
          {"name":"populate","in":"query","schema":{"type":"string","enum":["bestFriend"]}}
        ],
        "responses": { "200": { "description": "matching users" }, "400": { "description": "bad query" }, "503": { "description": "store unavailable" } }
      },
      "post": {
        "summary": "Create a user",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/User"} } } },
        "responses": { "201": { "description": "created" }, "422": { "description": "validation failed" }, "503": { "description": "store unavailable" } }
      },
      "delete": {
        "summary": "Delete every user with the given first name",
        "parameters": [{"name":"firstName","in":"query","required":true,"schema":{"type":"string"}}],
        "responses": { "200": { "description": "deleted count" } }
      }
    },
    "/api/users/search": {
      "get": {
        "summary": "First user whose first name contains name, ignoring case",
        "parameters": [{"name":"name","in":"query","required":true,"schema":{"type":"string"}}],
        "responses": { "200": { "description": "user" }, "404": { "description": "no match" } }
      }
    },
    "/api/users/export": {
      "post": { "summary": "Upload a snapshot of users to object storage", "responses": { "201": { "description": "snapshot key and presigned url" }, "501": { "description": "storage not configured" } } }
    },
    "/api/users/{id}": {
      "get": { "summary": "Get a user", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}},{"name":"populate","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "user" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Change fields and save", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "saved user" }, "404": { "description": "not found" }, "422": { "description": "validation failed" } } },
      "delete": { "summary": "Delete a user", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
