package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tahfidz Admin API",
        "description": "Administration API for a Qur'an boarding school: students, scores, memorization, attendance, budget and reports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Auth", "description": "Current user and capabilities"},
        {"name": "Students", "description": "Santri master data"},
        {"name": "Reference", "description": "Classes, halaqahs, subjects and teachers"},
        {"name": "Periods", "description": "Semesters and monthly periods"},
        {"name": "Scores", "description": "Exam scores and recaps"},
        {"name": "Memorization", "description": "Ziyadah, murajaah and tasmi' logs"},
        {"name": "Reports", "description": "Semester ranking and report cards"},
        {"name": "Attendance", "description": "Daily attendance"},
        {"name": "Budgets", "description": "Fund requests and realizations"},
        {"name": "Violations", "description": "Discipline records"},
        {"name": "Announcements", "description": "Announcements and bulletins"},
        {"name": "Audit", "description": "Change history"},
        {"name": "Exports", "description": "CSV, Excel, PDF and WhatsApp exports"},
        {"name": "Broadcasts", "description": "WhatsApp mass sending to guardians"},
        {"name": "ReportViews", "description": "Live filtered report sessions"}
    ],
    "paths": {
        "/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user and role capabilities",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "halaqah_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/scores": {
            "get": {
                "tags": ["Scores"],
                "summary": "List scores",
                "parameters": [
                    {"name": "period_id", "in": "query", "type": "string", "required": true},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "halaqah_id", "in": "query", "type": "string"},
                    {"name": "exam_type", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Scores"],
                "summary": "Create or replace one score",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/scores/batch": {
            "post": {
                "tags": ["Scores"],
                "summary": "Save a table of scores",
                "description": "A sequential batch that stops early answers 200 with meta.code PARTIAL_SAVE.",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/scores/recap": {
            "get": {
                "tags": ["Scores"],
                "summary": "Score recap per student and subject",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/memorization/report": {
            "get": {
                "tags": ["Memorization"],
                "summary": "Memorization report for a period",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports/semester": {
            "get": {
                "tags": ["Reports"],
                "summary": "Semester ranking",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports/students/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Student report card",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "period_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attendance/recap": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance recap",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/budgets/{id}/approve": {
            "post": {
                "tags": ["Budgets"],
                "summary": "Approve a pending fund request",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/budgets/summary": {
            "get": {
                "tags": ["Budgets"],
                "summary": "Requested, approved and realized totals",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/violations/{id}/status": {
            "patch": {
                "tags": ["Violations"],
                "summary": "Advance a violation's follow-up status",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "summary": "List announcements",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "archived", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Nothing to export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export via its signed token",
                "security": [],
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/broadcasts": {
            "post": {
                "tags": ["Broadcasts"],
                "summary": "Start a WhatsApp broadcast",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/broadcasts/{id}": {
            "get": {
                "tags": ["Broadcasts"],
                "summary": "Broadcast progress",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Broadcasts"],
                "summary": "Cancel a broadcast",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/report-views/{kind}": {
            "get": {
                "tags": ["ReportViews"],
                "summary": "Snapshot of a live report session",
                "parameters": [{"name": "kind", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["ReportViews"],
                "summary": "Apply filters to a live report session",
                "parameters": [{"name": "kind", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["ReportViews"],
                "summary": "Close a live report session",
                "parameters": [{"name": "kind", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "ExportRequest": {
            "type": "object",
            "required": ["kind", "format"],
            "properties": {
                "kind": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "xlsx", "pdf", "txt"]},
                "filters": {"type": "object", "additionalProperties": {"type": "string"}}
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
