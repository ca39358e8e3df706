package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Progress API",
        "description": "Enrollment lifecycle and lesson viewing progress",
        "version": "0.1.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollments", "description": "Student enrollment lifecycle"},
        {"name": "Progress", "description": "Lesson viewing progress and course completion"}
    ],
    "paths": {
        "/enrollments/enroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll the caller in a course",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"},
                    {"name": "X-User-Role", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/my-enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List the caller's enrollments",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/course/{courseId}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments of a course",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/progress": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Update the caller's progress in a course",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"},
                    {"name": "X-User-Role", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEnrollmentProgressRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/drop": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Drop the caller's enrollment",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"},
                    {"name": "X-User-Role", "in": "header", "required": true, "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "204": {"description": "Dropped"},
                    "404": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get an enrollment by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/progress": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Apply a computed progress percentage",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyProgressRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Enrollment dropped", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/video/update": {
            "post": {
                "tags": ["Progress"],
                "summary": "Record how far the caller watched a lesson",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"},
                    {"name": "X-User-Role", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordViewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown enrollment or lesson", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Directory unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/course/{courseId}": {
            "get": {
                "tags": ["Progress"],
                "summary": "Summarise the caller's progress in a course",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"},
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/progress/my-progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "List the caller's lesson records, newest first",
                "parameters": [
                    {"name": "X-User-Email", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EnrollRequest": {
            "type": "object",
            "required": ["courseId"],
            "properties": {
                "courseId": {"type": "string"}
            }
        },
        "UpdateEnrollmentProgressRequest": {
            "type": "object",
            "required": ["courseId", "progress"],
            "properties": {
                "courseId": {"type": "string"},
                "progress": {"type": "number", "minimum": 0, "maximum": 100}
            }
        },
        "ApplyProgressRequest": {
            "type": "object",
            "required": ["progress"],
            "properties": {
                "progress": {"type": "number", "minimum": 0, "maximum": 100}
            }
        },
        "RecordViewRequest": {
            "type": "object",
            "required": ["enrollmentId", "moduleIndex", "lessonIndex", "watchedSeconds"],
            "properties": {
                "enrollmentId": {"type": "string"},
                "moduleIndex": {"type": "integer", "minimum": 0},
                "lessonIndex": {"type": "integer", "minimum": 0},
                "watchedSeconds": {"type": "integer", "minimum": 0}
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
