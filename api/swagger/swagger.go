package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Roster API",
        "description": "Student assistant rostering: schedule generation, editing, attendance and availability",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, registration and password management"},
        {"name": "Schedule", "description": "Schedule generation, editing, views and exports"},
        {"name": "Availability", "description": "Assistant availability windows and slot lookups"},
        {"name": "TimeTracking", "description": "Clock-in/out and attendance reporting"},
        {"name": "Requests", "description": "Shift-change requests"},
        {"name": "Notifications", "description": "Per-user notification feed"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/auth/login": {
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
        "/api/v1/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Submit a volunteer registration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegistrationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Username taken or signup already pending"}
                }
            }
        },
        "/api/v1/auth/registrations/{id}": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Approve or reject a pending registration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegistrationVerdict"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Registration not found"},
                    "409": {"description": "Registration already resolved"}
                }
            }
        },
        "/api/v1/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change the caller's password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Current password mismatch"}
                }
            }
        },
        "/api/v1/schedule/current": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Current schedule grid",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["helpdesk", "lab"]},
                    {"name": "include_available", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule/generate": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Generate a schedule for a date range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generation result, infeasible runs reported in-band"},
                    "422": {"description": "Invalid range or unknown course override"}
                }
            }
        },
        "/api/v1/schedule/save": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Replace assignments for a date range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveAssignmentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "422": {"description": "Assignment outside availability"}
                }
            }
        },
        "/api/v1/schedule/add-staff": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Allocate one assistant to a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddAllocationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already allocated"},
                    "422": {"description": "Outside availability"}
                }
            }
        },
        "/api/v1/schedule/remove-staff": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Remove one assistant from a shift",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RemoveAllocationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Allocation not found"}
                }
            }
        },
        "/api/v1/schedule/clear": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Remove all shifts and allocations in a range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClearScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/schedule/{id}/publish": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Publish a schedule and notify allocated staff",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Schedule not found"}
                }
            }
        },
        "/api/v1/schedule/export": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Export the current schedule as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["helpdesk", "lab"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "link", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Artifact stream or signed link"}
                }
            }
        },
        "/api/v1/schedule/export/download": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Download a previously exported artifact",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Artifact stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/volunteer/dashboard": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Volunteer dashboard for the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/staff/available": {
            "get": {
                "tags": ["Availability"],
                "summary": "List assistants available for one slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["helpdesk", "lab"]},
                    {"name": "day", "in": "query", "required": true, "type": "string"},
                    {"name": "time", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/staff/check-availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Check one assistant's availability for one slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["helpdesk", "lab"]},
                    {"name": "username", "in": "query", "required": true, "type": "string"},
                    {"name": "day", "in": "query", "required": true, "type": "string"},
                    {"name": "time", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/staff/check-availability/batch": {
            "post": {
                "tags": ["Availability"],
                "summary": "Check many availability queries in one call",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/staff/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List the caller's availability windows",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Add an availability window for the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityWindowRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Inverted or unparseable span"}
                }
            }
        },
        "/api/v1/staff/availability/{id}": {
            "delete": {
                "tags": ["Availability"],
                "summary": "Remove one of the caller's availability windows",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Window not found"}
                }
            }
        },
        "/api/v1/time-tracking/clock-in": {
            "post": {
                "tags": ["TimeTracking"],
                "summary": "Start a time entry for the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ClockInRequest"}}
                ],
                "responses": {
                    "201": {"description": "Clocked in"},
                    "409": {"description": "Active entry already open"},
                    "422": {"description": "Too early or shift ended"}
                }
            }
        },
        "/api/v1/time-tracking/clock-out": {
            "post": {
                "tags": ["TimeTracking"],
                "summary": "Close the caller's active time entry",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Clocked out"},
                    "404": {"description": "No active entry"}
                }
            }
        },
        "/api/v1/time-tracking/today": {
            "get": {
                "tags": ["TimeTracking"],
                "summary": "Caller's shift status for today",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/time-tracking/stats": {
            "get": {
                "tags": ["TimeTracking"],
                "summary": "Caller's attendance statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/time-tracking/history": {
            "get": {
                "tags": ["TimeTracking"],
                "summary": "Caller's recent completed shifts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/time-tracking/distribution": {
            "get": {
                "tags": ["TimeTracking"],
                "summary": "Caller's hours split per weekday",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/time-tracking/mark-missed": {
            "post": {
                "tags": ["TimeTracking"],
                "summary": "Flag an assistant's shift as missed",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkMissedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Entry already recorded for shift"}
                }
            }
        },
        "/api/v1/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List the caller's requests",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a shift-change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "404": {"description": "Caller not allocated to shift"}
                }
            }
        },
        "/api/v1/requests/pending": {
            "get": {
                "tags": ["Requests"],
                "summary": "List all pending requests",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/requests/{id}/resolve": {
            "post": {
                "tags": ["Requests"],
                "summary": "Approve or reject a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveRequestPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Request already resolved"}
                }
            }
        },
        "/api/v1/requests/{id}": {
            "delete": {
                "tags": ["Requests"],
                "summary": "Cancel one of the caller's pending requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the request owner"}
                }
            }
        },
        "/api/v1/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Notification not found"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "RegistrationRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "degree": {"type": "string", "enum": ["BSc", "MSc"]}
            },
            "required": ["username", "password", "name", "degree"]
        },
        "RegistrationVerdict": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "current_password": {"type": "string"},
                "new_password": {"type": "string"}
            },
            "required": ["current_password", "new_password"]
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["helpdesk", "lab"]},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "options": {"type": "object"}
            },
            "required": ["kind", "start_date", "end_date"]
        },
        "SaveAssignmentsRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["helpdesk", "lab"]},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "assignments": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["kind", "start_date", "end_date", "assignments"]
        },
        "AddAllocationRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["helpdesk", "lab"]},
                "username": {"type": "string"},
                "shift_id": {"type": "integer"}
            },
            "required": ["kind", "username", "shift_id"]
        },
        "RemoveAllocationRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["helpdesk", "lab"]},
                "username": {"type": "string"},
                "shift_id": {"type": "integer"},
                "day": {"type": "string"},
                "time": {"type": "string"}
            },
            "required": ["kind", "username"]
        },
        "ClearScheduleRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["helpdesk", "lab"]},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["kind", "start_date", "end_date"]
        },
        "BatchAvailabilityRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["helpdesk", "lab"]},
                "queries": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["kind", "queries"]
        },
        "AvailabilityWindowRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"}
            },
            "required": ["day", "start", "end"]
        },
        "ClockInRequest": {
            "type": "object",
            "properties": {
                "shift_id": {"type": "integer"}
            }
        },
        "MarkMissedRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "shift_id": {"type": "integer"}
            },
            "required": ["username", "shift_id"]
        },
        "SubmitRequestPayload": {
            "type": "object",
            "properties": {
                "shift_id": {"type": "integer"},
                "reason": {"type": "string"},
                "replacement": {"type": "string"}
            },
            "required": ["shift_id", "reason"]
        },
        "ResolveRequestPayload": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "note": {"type": "string"}
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
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"}
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
