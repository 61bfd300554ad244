package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "RTD Connect Eligibility API",
        "description": "Term reconciliation against PASI and home education funding eligibility.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Funding", "description": "Home education funding eligibility"},
        {"name": "Terms", "description": "PASI term reconciliation and term mapping"},
        {"name": "Configuration", "description": "Eligibility settings"}
    ],
    "paths": {
        "/funding/eligibility": {
            "post": {
                "tags": ["Funding"],
                "summary": "Check funding eligibility for a date of birth",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FundingEligibilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/funding-eligibility": {
            "get": {
                "tags": ["Funding"],
                "summary": "Funding eligibility of a registered student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "school_year", "in": "query", "type": "string", "description": "YY/YY"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Student belongs to another family", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/funding/recompute": {
            "post": {
                "tags": ["Funding"],
                "summary": "Queue a funding snapshot refresh for all active students",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RecomputeFundingRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/evaluate": {
            "post": {
                "tags": ["Terms"],
                "summary": "Run a single enrollment record through the term rules",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EvaluateTermRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/reconciliation": {
            "get": {
                "tags": ["Terms"],
                "summary": "List enrollments with their term reconciliation",
                "parameters": [
                    {"name": "school_year", "in": "query", "type": "string"},
                    {"name": "course_code", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "pasi_term", "in": "query", "type": "string"},
                    {"name": "unchecked_only", "in": "query", "type": "boolean"},
                    {"name": "mismatch_only", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/reconciliation/summary": {
            "get": {
                "tags": ["Terms"],
                "summary": "Count reconciliation outcomes",
                "parameters": [
                    {"name": "school_year", "in": "query", "type": "string"},
                    {"name": "course_code", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/reconciliation/export": {
            "get": {
                "tags": ["Terms"],
                "summary": "Download the reconciliation as csv or pdf",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "mismatch_only", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/reconciliation/{id}/review": {
            "put": {
                "tags": ["Terms"],
                "summary": "Mark an enrollment's term as checked and optionally override it",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewTermRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Term editing disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Enrollment not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms/mappings": {
            "get": {
                "tags": ["Terms"],
                "summary": "Current term mapping",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Terms"],
                "summary": "Replace the term mapping",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TermMappingPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid mapping", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/configuration": {
            "get": {
                "tags": ["Configuration"],
                "summary": "List eligibility settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Configuration"],
                "summary": "Override several settings at once",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkUpdateConfigurationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/configuration/{key}": {
            "get": {
                "tags": ["Configuration"],
                "summary": "Get setting by key",
                "parameters": [{"name": "key", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown setting", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Configuration"],
                "summary": "Override a setting",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateConfigurationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid value", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Configuration"],
                "summary": "Drop an override and fall back to the configured default",
                "parameters": [{"name": "key", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "FundingEligibilityRequest": {
            "type": "object",
            "properties": {
                "birthday": {"type": "string", "example": "2020-09-15"},
                "school_year": {"type": "string", "example": "25/26"}
            }
        },
        "RecomputeFundingRequest": {
            "type": "object",
            "properties": {
                "school_year": {"type": "string", "example": "25/26"}
            }
        },
        "EvaluateTermRequest": {
            "type": "object",
            "properties": {
                "course_code": {"type": "string"},
                "exit_date": {"type": "string"},
                "status": {"type": "string"},
                "pasi_term": {"type": "string"},
                "your_way_term": {"type": "string"},
                "status_value": {"type": "string"},
                "term_override": {"type": "string"},
                "cutoff_date": {"type": "string", "example": "2025-01-30"}
            }
        },
        "ReviewTermRequest": {
            "type": "object",
            "required": ["checked"],
            "properties": {
                "checked": {"type": "boolean"},
                "term_override": {"type": "string", "enum": ["", "Term 1", "Term 2", "Full Year", "Summer"]}
            }
        },
        "TermMappingPayload": {
            "type": "object",
            "required": ["mappings"],
            "properties": {
                "mappings": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"type": "string"}}
                }
            }
        },
        "UpdateConfigurationRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "key": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "BulkUpdateConfigurationRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/UpdateConfigurationRequest"}}
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
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
