package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Grading API",
        "description": "Activity scoring, course grade aggregation and materia grade propagation.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Activities", "description": "Answer scoring, attempts and deliverables"},
        {"name": "Grades", "description": "Course grade summary and propagation"},
        {"name": "Observability", "description": "Metrics snapshot"}
    ],
    "paths": {
        "/activities/answers": {
            "post": {
                "tags": ["Activities"],
                "summary": "Submit activity answers",
                "description": "Scores an attempt on a 0 to 5 scale. Reviewed activities allow a limited number of attempts.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SubmitAnswersRequest"}}
                ],
                "responses": {
                    "200": {"description": "Attempt recorded", "schema": {"$ref": "#/definitions/SubmissionResultEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "No attempts remaining", "schema": {"$ref": "#/definitions/SubmissionResultEnvelope"}},
                    "404": {"description": "Unknown activity", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities/attempts": {
            "get": {
                "tags": ["Activities"],
                "summary": "Attempt status",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "activityId", "type": "integer", "required": true},
                    {"in": "query", "name": "userId", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities/submissions/file": {
            "post": {
                "tags": ["Activities"],
                "summary": "Register a file submission",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/FileSubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities/submissions/url": {
            "post": {
                "tags": ["Activities"],
                "summary": "Register a link submission",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/URLSubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/summary": {
            "get": {
                "tags": ["Grades"],
                "summary": "Course grade summary",
                "description": "Final grade is null while no weighted parameter has a completed activity.",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "courseId", "type": "integer", "required": true},
                    {"in": "query", "name": "userId", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GradeSummaryEnvelope"}}
                }
            }
        },
        "/grades/summary/export": {
            "get": {
                "tags": ["Grades"],
                "summary": "Export the course grade summary",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "courseId", "type": "integer", "required": true},
                    {"in": "query", "name": "userId", "type": "string", "required": true},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}}
                }
            }
        },
        "/grades/materias": {
            "get": {
                "tags": ["Grades"],
                "summary": "Propagated materia grades",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "courseId", "type": "integer", "required": true},
                    {"in": "query", "name": "userId", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/update": {
            "post": {
                "tags": ["Grades"],
                "summary": "Override an activity grade",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Staff only", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/propagate": {
            "post": {
                "tags": ["Grades"],
                "summary": "Recompute and propagate a course grade",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/PropagationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Metrics snapshot",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Answer": {
            "type": "object",
            "properties": {
                "isCorrect": {"type": "boolean"},
                "pesoPregunta": {"type": "number", "minimum": 0}
            }
        },
        "SubmitAnswersRequest": {
            "type": "object",
            "required": ["activityId", "userId", "answers"],
            "properties": {
                "activityId": {"type": "integer"},
                "userId": {"type": "string"},
                "answers": {"type": "object", "additionalProperties": {"$ref": "#/definitions/Answer"}}
            }
        },
        "FileSubmissionRequest": {
            "type": "object",
            "required": ["activityId", "userId", "fileInfo"],
            "properties": {
                "activityId": {"type": "integer"},
                "userId": {"type": "string"},
                "fileInfo": {
                    "type": "object",
                    "properties": {
                        "fileName": {"type": "string"},
                        "fileUrl": {"type": "string"},
                        "documentKey": {"type": "string"},
                        "uploadDate": {"type": "string", "format": "date-time"},
                        "status": {"type": "string", "enum": ["pending", "reviewed"]},
                        "grade": {"type": "number", "minimum": 0, "maximum": 5}
                    }
                }
            }
        },
        "URLSubmissionRequest": {
            "type": "object",
            "required": ["activityId", "userId", "submissionData"],
            "properties": {
                "activityId": {"type": "integer"},
                "userId": {"type": "string"},
                "submissionData": {
                    "type": "object",
                    "properties": {
                        "url": {"type": "string"},
                        "type": {"type": "string"},
                        "uploadDate": {"type": "string", "format": "date-time"}
                    }
                }
            }
        },
        "UpdateGradeRequest": {
            "type": "object",
            "required": ["courseId", "userId", "activityId", "finalGrade"],
            "properties": {
                "courseId": {"type": "integer"},
                "userId": {"type": "string"},
                "activityId": {"type": "integer"},
                "finalGrade": {"type": "number", "minimum": 0, "maximum": 5}
            }
        },
        "PropagationRequest": {
            "type": "object",
            "required": ["courseId", "userId"],
            "properties": {
                "courseId": {"type": "integer"},
                "userId": {"type": "string"}
            }
        },
        "SubmissionResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "canClose": {"type": "boolean"},
                "score": {"type": "number"},
                "attemptCount": {"type": "integer"},
                "attemptsRemaining": {"type": "integer", "x-nullable": true},
                "attemptsExhausted": {"type": "boolean"},
                "finalGrade": {"type": "number"},
                "message": {"type": "string"}
            }
        },
        "GradeSummary": {
            "type": "object",
            "properties": {
                "courseId": {"type": "integer"},
                "userId": {"type": "string"},
                "finalGrade": {"type": "number", "x-nullable": true},
                "isCompleted": {"type": "boolean"},
                "parameters": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {"type": "integer"},
                            "name": {"type": "string"},
                            "grade": {"type": "number"},
                            "weight": {"type": "number"},
                            "activities": {
                                "type": "array",
                                "items": {
                                    "type": "object",
                                    "properties": {
                                        "id": {"type": "integer"},
                                        "name": {"type": "string"},
                                        "grade": {"type": "number"}
                                    }
                                }
                            }
                        }
                    }
                }
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
        },
        "SubmissionResultEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/SubmissionResult"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "GradeSummaryEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/GradeSummary"},
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
