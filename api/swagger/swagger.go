package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Clearance API",
        "description": "Approval workflow backend for university clearance requests",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, tokens and password recovery"},
        {"name": "Requests", "description": "Clearance request lifecycle"},
        {"name": "Workflows", "description": "Approval sequence resolution and overrides"},
        {"name": "Admin", "description": "Dashboard, accounts and audit trail"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Submit a signup for admin review",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Username taken"}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List requests visible to the current account",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a clearance request",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "type", "in": "formData", "type": "string", "required": true},
                    {"name": "reason", "in": "formData", "type": "string", "required": true},
                    {"name": "programType", "in": "formData", "type": "string", "required": true},
                    {"name": "programMode", "in": "formData", "type": "string", "required": true},
                    {"name": "documents", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/pending": {
            "get": {
                "tags": ["Requests"],
                "summary": "List requests awaiting the current approver's decision",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/decision": {
            "post": {
                "tags": ["Requests"],
                "summary": "Approve or reject the current step",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the current approver"},
                    "409": {"description": "Concurrent decision"}
                }
            }
        },
        "/requests/{id}/certificate": {
            "get": {
                "tags": ["Requests"],
                "summary": "Download the clearance certificate",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF"},
                    "409": {"description": "Not fully approved"}
                }
            }
        },
        "/workflows/resolve": {
            "get": {
                "tags": ["Workflows"],
                "summary": "Resolve the effective approval sequence",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string", "required": true},
                    {"name": "programKey", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflows": {
            "put": {
                "tags": ["Workflows"],
                "summary": "Store a workflow override and propagate it",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateWorkflowRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Dashboard counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "password", "name", "email", "role"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "department": {"type": "string"},
                "program": {"type": "string"},
                "approverType": {"type": "string"}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approved", "rejected"]},
                "comment": {"type": "string"}
            }
        },
        "UpdateWorkflowRequest": {
            "type": "object",
            "required": ["type", "programKey", "sequence"],
            "properties": {
                "type": {"type": "string"},
                "programKey": {"type": "string"},
                "sequence": {"type": "array", "items": {"type": "string"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
