// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/auth/register": {
            "post": {
                "description": "Self-registration always yields a buyer and signs the caller in. An authenticated admin may pass role and does not receive a session.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new account",
                "parameters": [
                    {"description": "Account details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}}
                }
            }
        },
        "/auth/profile": {
            "get": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Current profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.identityResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "patch": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Update profile",
                "parameters": [
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.identityResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List accounts",
                "parameters": [
                    {"enum": ["buyer", "seller", "admin"], "type": "string", "description": "Filter by role", "name": "role", "in": "query"},
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (default 20, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listUsersResponse"}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get account",
                "parameters": [{"type": "string", "description": "Account id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.identityResponse"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Delete account",
                "parameters": [{"type": "string", "description": "Account id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/users/{id}/role": {
            "patch": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Change role",
                "parameters": [
                    {"type": "string", "description": "Account id", "name": "id", "in": "path", "required": true},
                    {"description": "New role", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.changeRoleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.identityResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/access/{area}": {
            "get": {
                "security": [{"CookieAuth": []}, {"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["access"],
                "summary": "Role-gated access probe",
                "parameters": [{"enum": ["buyer", "seller", "admin", "trade"], "type": "string", "description": "Area", "name": "area", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.accessResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.registerRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string", "maxLength": 72, "minLength": 6},
                "role": {"type": "string", "example": "seller"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.updateProfileRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "password": {"type": "string", "maxLength": 72, "minLength": 6}
            }
        },
        "handler.changeRoleRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {"role": {"type": "string", "example": "seller"}}
        },
        "handler.identityResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/handler.identityResponse"}
            }
        },
        "handler.listUsersResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/handler.identityResponse"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "handler.accessResponse": {
            "type": "object",
            "properties": {"role": {"type": "string"}, "area": {"type": "string"}}
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "error": {"type": "string"}}
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "CookieAuth": {"type": "apiKey", "name": "token", "in": "cookie"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Identity Service API",
	Description:      "Registration, login, session tokens and role-gated access.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
