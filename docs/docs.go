// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login as a student, warden or security staff member",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/auth/validate": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Check the bearer token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Get the caller's profile",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/me/password": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Change the caller's password",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/gatepass": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Request a gate pass",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreatePassRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}
            }
        },
        "/gatepass/student/{studentId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "List a student's gate passes, newest first",
                "parameters": [{"name": "studentId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/gatepass/pending": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["gatepass"], "summary": "List passes awaiting a decision", "responses": {"200": {"description": "OK"}}}
        },
        "/gatepass/approved": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["gatepass"], "summary": "List approved passes", "responses": {"200": {"description": "OK"}}}
        },
        "/gatepass/currently-out": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["gatepass"], "summary": "List students currently outside the hostel", "responses": {"200": {"description": "OK"}}}
        },
        "/gatepass/all": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Search every gate pass",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "from_date", "in": "query", "type": "string"},
                    {"name": "to_date", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/gatepass/dashboard": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["gatepass"], "summary": "Pass counters for the caller's landing page", "responses": {"200": {"description": "OK"}}}
        },
        "/gatepass/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"],
                "summary": "Verify a scanned gate pass",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.VerifyRequest"}}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/gatepass/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Get a gate pass",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/gatepass/{id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Approve a pending gate pass",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/handler.RemarksRequest"}}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/gatepass/{id}/reject": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Reject a pending gate pass",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/handler.RemarksRequest"}}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/gatepass/{id}/exit": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Record the student leaving the hostel",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/handler.RemarksRequest"}}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/gatepass/{id}/entry": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["gatepass"],
                "summary": "Record the student returning to the hostel",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/handler.RemarksRequest"}}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/gatepass/{id}/document": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"],
                "summary": "Download the printable document of an approved pass",
                "produces": ["application/pdf"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}, "412": {"description": "Precondition Failed"}}
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "error": {"type": "string"}}
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["identifier", "password"],
            "properties": {
                "identifier": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "warden", "security"]}
            }
        },
        "handler.AuthResponse": {
            "type": "object",
            "properties": {"expires_at": {"type": "string"}, "token": {"type": "string"}, "user": {"type": "object"}}
        },
        "handler.CreatePassRequest": {
            "type": "object",
            "required": ["reason", "destination", "fromDate", "toDate", "outTime", "returnTime"],
            "properties": {
                "reason": {"type": "string", "maxLength": 500},
                "destination": {"type": "string", "maxLength": 255},
                "fromDate": {"type": "string", "example": "2025-01-10"},
                "toDate": {"type": "string", "example": "2025-01-10"},
                "outTime": {"type": "string", "example": "09:00"},
                "returnTime": {"type": "string", "example": "18:00"}
            }
        },
        "handler.RemarksRequest": {
            "type": "object",
            "properties": {"remarks": {"type": "string", "maxLength": 500}}
        },
        "handler.VerifyRequest": {
            "type": "object",
            "required": ["payload"],
            "properties": {"payload": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Hostel Gate Pass API",
	Description:      "Gate pass requests, warden decisions, gate exit/entry logging and printable pass documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
