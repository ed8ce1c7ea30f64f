package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Planner API",
        "description": "Recurring lesson generation, homework carry-over and lesson cancellation for tutoring schedules.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedules", "description": "Student projects and weekly templates"},
        {"name": "Calendar", "description": "Calendar navigation and day agendas"},
        {"name": "Lessons", "description": "Single lesson edits, homework and cancellation"},
        {"name": "System", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {"get": {"tags": ["System"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/ready": {"get": {"tags": ["System"], "summary": "Readiness check", "responses": {"200": {"description": "Ready"}, "503": {"description": "Database unavailable"}}}},
        "/metrics": {"get": {"tags": ["System"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/metrics/summary": {"get": {"tags": ["System"], "summary": "Engine counters", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}},
        "/api/v1/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List student schedules",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Create a student schedule",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}/template": {
            "put": {
                "tags": ["Schedules"],
                "summary": "Replace weekly template",
                "description": "Future generated lessons are moved, removed or added to match. Lessons moved by hand are left alone.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List lessons in a date range",
                "description": "Missing lessons in the range plus the lookahead margin are generated in the background.",
                "parameters": [
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/calendar/days/{date}": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Day agenda with layout",
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/calendar/days/{date}/export": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Export a day agenda",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/api/v1/occurrences/{id}": {
            "get": {
                "tags": ["Lessons"],
                "summary": "Open a lesson",
                "description": "Carries the previous lesson's homework onto this one as checks.",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/occurrences/{id}/schedule": {
            "patch": {
                "tags": ["Lessons"],
                "summary": "Move a lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleOccurrenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Lesson cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/occurrences/{id}/assignments": {
            "put": {
                "tags": ["Lessons"],
                "summary": "Set homework for the next lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetAssignmentsRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/occurrences/{id}/checks": {
            "patch": {
                "tags": ["Lessons"],
                "summary": "Mark a homework check done or open",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleCheckRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/occurrences/{id}/cancel": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Cancel a lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CancelOccurrenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Cancelled, homework forwarded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Pending makeup placement", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No upcoming lesson", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/makeups/{token}": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Place the makeup lesson",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlaceMakeupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Pending cancellation expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Lessons"],
                "summary": "Abandon a pending cancellation",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Abandoned, any makeup created by a failed placement is removed"}, "404": {"description": "Unknown token"}}
            }
        }
    },
    "definitions": {
        "TemplateSlot": {
            "type": "object",
            "properties": {
                "key": {"type": "integer", "minimum": 0, "description": "Stable slot identity; omitted slots are keyed on save"},
                "day": {"type": "integer", "minimum": 0, "maximum": 6},
                "time": {"type": "string", "example": "16:30"},
                "duration": {"type": "integer", "example": 40}
            },
            "required": ["day", "time"]
        },
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "schedule_template": {"type": "array", "items": {"$ref": "#/definitions/TemplateSlot"}},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"}
            },
            "required": ["name", "start_date"]
        },
        "UpdateTemplateRequest": {
            "type": "object",
            "properties": {
                "schedule_template": {"type": "array", "items": {"$ref": "#/definitions/TemplateSlot"}},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"}
            },
            "required": ["start_date"]
        },
        "HomeworkAssignment": {
            "type": "object",
            "properties": {
                "textbook_id": {"type": "string"},
                "textbook_name": {"type": "string"},
                "chapters": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["textbook_id", "chapters"]
        },
        "RescheduleOccurrenceRequest": {
            "type": "object",
            "properties": {
                "startTime": {"type": "string", "format": "date-time"},
                "duration": {"type": "integer"}
            },
            "required": ["startTime"]
        },
        "SetAssignmentsRequest": {
            "type": "object",
            "properties": {"assignments": {"type": "array", "items": {"$ref": "#/definitions/HomeworkAssignment"}}}
        },
        "ToggleCheckRequest": {
            "type": "object",
            "properties": {
                "textbookId": {"type": "string"},
                "chapter": {"type": "string"},
                "completed": {"type": "boolean"}
            },
            "required": ["textbookId", "chapter", "completed"]
        },
        "CancelOccurrenceRequest": {
            "type": "object",
            "properties": {"mode": {"type": "string", "enum": ["makeup-first", "forward-next"]}},
            "required": ["mode"]
        },
        "PlaceMakeupRequest": {
            "type": "object",
            "properties": {"startTime": {"type": "string", "format": "date-time"}},
            "required": ["startTime"]
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
