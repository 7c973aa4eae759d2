package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Information System API",
        "description": "Enrollment intake, student records, attendance, grades and dashboards",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Enrollment", "description": "Application intake and approval"},
        {"name": "SchoolYears", "description": "Academic year management"},
        {"name": "Sections", "description": "Sections and curriculum"},
        {"name": "Attendance", "description": "Daily attendance ledger"},
        {"name": "Grades", "description": "Quarterly grades"},
        {"name": "Students", "description": "Student directory"},
        {"name": "Users", "description": "Account administration"},
        {"name": "Dashboard", "description": "Role-specific landing views"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid credentials"}
                }
            }
        },
        "/enrollment/submit": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Submit an enrollment application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitApplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/enrollment/applications": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "List applications",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "gradeLevel", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "schoolYearId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/enrollment/applications/{id}/approve": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Approve an application",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Application not found"}
                }
            }
        },
        "/enrollment/applications/{id}/audit": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Audit entries for an application",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Application not found"}
                }
            }
        },
        "/enrollment/school-years/{id}": {
            "delete": {
                "tags": ["SchoolYears"],
                "summary": "Delete a school year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Active year or year with enrollments"},
                    "404": {"description": "School year not found"}
                }
            }
        },
        "/enrollment/school-years/active": {
            "get": {
                "tags": ["SchoolYears"],
                "summary": "Get the active school year",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "No active school year"}
                }
            }
        },
        "/sections": {
            "get": {
                "tags": ["Sections"],
                "summary": "List sections",
                "parameters": [
                    {"name": "schoolYearId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/attendance/roster": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance sheet for a section and date",
                "parameters": [
                    {"name": "sectionId", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "schoolYearId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SubmitApplicationRequest": {
            "type": "object",
            "required": ["student_first_name", "student_last_name", "date_of_birth", "gender", "grade_level", "lrn", "parent_email"],
            "properties": {
                "student_first_name": {"type": "string"},
                "student_middle_name": {"type": "string"},
                "student_last_name": {"type": "string"},
                "date_of_birth": {"type": "string", "format": "date-time"},
                "gender": {"type": "string"},
                "grade_level": {"type": "string"},
                "lrn": {"type": "string"},
                "parent_email": {"type": "string"},
                "school_year_id": {"type": "string"}
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
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"type": "string"},
                "code": {"type": "string"},
                "pagination": {"$ref": "#/definitions/Pagination"}
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
