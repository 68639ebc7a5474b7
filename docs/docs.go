// Package docs registers the OpenAPI description served at /swagger/.
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
        "/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a new user",
                "parameters": [
                    {"in": "body", "name": "user", "required": true, "schema": {"$ref": "#/definitions/users.SignUpRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Exchange credentials for a JWT",
                "parameters": [
                    {"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/users.SignInRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/submissions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["submissions"],
                "summary": "Create a post, listing or bid request with media",
                "parameters": [
                    {"in": "formData", "name": "draft", "type": "string", "required": true, "description": "JSON encoded draft"},
                    {"in": "formData", "name": "media", "type": "file", "description": "Media files"}
                ],
                "responses": {
                    "200": {"description": "Replayed", "schema": {"$ref": "#/definitions/types.SubmissionResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.SubmissionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "In progress", "schema": {"$ref": "#/definitions/response.Response"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/response.Response"}},
                    "502": {"description": "All creation tiers failed", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["events"],
                "summary": "Submission event stream",
                "parameters": [
                    {"in": "query", "name": "token", "type": "string", "description": "JWT when the Authorization header cannot be set"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "error": {"type": "string"},
                "message": {"type": "string"},
                "data": {},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "users.SignUpRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "users.SignInRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "types.RejectedFile": {
            "type": "object",
            "properties": {
                "file_name": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "types.SubmissionResponse": {
            "type": "object",
            "properties": {
                "record_id": {"type": "string"},
                "kind": {"type": "string"},
                "tier": {"type": "string"},
                "locators": {"type": "array", "items": {"type": "string"}},
                "rejected_files": {"type": "array", "items": {"$ref": "#/definitions/types.RejectedFile"}},
                "failed_uploads": {"type": "array", "items": {"type": "string"}},
                "link_warnings": {"type": "array", "items": {"type": "string"}},
                "replayed": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Submission Service API",
	Description:      "Content submission with media upload, tiered creation and media linking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
