// Package docs registers the OpenAPI description of the curto HTTP API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/create": {
            "post": {
                "description": "Creates a short link. When customId is omitted a random five character id is generated.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["links"],
                "summary": "Create a short link",
                "parameters": [
                    {
                        "description": "Link to create",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.CreateLinkRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.LinkResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "422": {"description": "Invalid target URL or custom id", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/links": {
            "get": {
                "produces": ["application/json"],
                "tags": ["links"],
                "summary": "List every link",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.LinkResponse"}}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/links/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["links"],
                "summary": "Get a link",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LinkResponse"}},
                    "404": {"description": "Link not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/{id}": {
            "get": {
                "description": "Redirects to the stored target. A query string on the request replaces the one on the target.",
                "tags": ["links"],
                "summary": "Follow a short link",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "404": {"description": "Link not found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"type": "string"}}}
            }
        },
        "/metrics": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["system"],
                "summary": "Prometheus metrics",
                "responses": {"200": {"description": "OK", "schema": {"type": "string"}}}
            }
        }
    },
    "definitions": {
        "handler.CreateLinkRequest": {
            "type": "object",
            "required": ["targetUrl"],
            "properties": {
                "customId": {"type": "string", "example": "crates"},
                "targetUrl": {"type": "string", "example": "https://crates.io/"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Something went wrong"}
            }
        },
        "handler.LinkResponse": {
            "type": "object",
            "properties": {
                "countRedirects": {"type": "integer", "example": 0},
                "createdAt": {"type": "string", "example": "2025-01-15T12:00:00.123456"},
                "id": {"type": "string", "example": "bmdkw"},
                "targetUrl": {"type": "string", "example": "https://crates.io/"},
                "updatedAt": {"type": "string", "example": "2025-01-15T12:00:00.123456"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "curto",
	Description:      "Short links with redirect counting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
