package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "RailMadad API",
    "description": "Railway complaint intake, triage and resolution",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
  },
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}, "503": {"description": "Database unavailable"}}}},
    "/api/auth/send-otp": {"post": {"tags": ["auth"], "summary": "Send a login code", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid phone number"}, "429": {"description": "Too many failed attempts"}}}},
    "/api/auth/verify-otp": {"post": {"tags": ["auth"], "summary": "Verify a login code", "responses": {"200": {"description": "Token issued"}, "401": {"description": "Wrong or expired code"}}}},
    "/api/auth/me": {"get": {"tags": ["auth"], "summary": "Current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/categories": {
      "get": {"tags": ["categories"], "summary": "List categories", "responses": {"200": {"description": "OK"}}},
      "post": {"tags": ["categories"], "summary": "Create a category", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate name"}}}
    },
    "/api/categories/{id}": {
      "get": {"tags": ["categories"], "summary": "Get a category", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
      "patch": {"tags": ["categories"], "summary": "Update a category", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
      "delete": {"tags": ["categories"], "summary": "Deactivate a category", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "Deactivated"}}}
    },
    "/api/complaints": {
      "get": {"tags": ["complaints"], "summary": "List complaints", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
      "post": {"tags": ["complaints"], "summary": "Submit a complaint", "security": [{"BearerAuth": []}], "consumes": ["multipart/form-data", "application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}}
    },
    "/api/complaints/{id}": {
      "get": {"tags": ["complaints"], "summary": "Complaint details", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not found"}}},
      "patch": {"tags": ["complaints"], "summary": "Change status, priority, resolution or feedback", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition or concurrent update"}}}
    },
    "/api/complaints/{id}/assign": {"post": {"tags": ["complaints"], "summary": "Assign a worker", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/complaints/{id}/worker-suggestions": {"get": {"tags": ["complaints"], "summary": "Eligible workers for a complaint", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/media/{id}": {"get": {"tags": ["media"], "summary": "Download an attachment", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "File bytes"}, "404": {"description": "Not found"}}}},
    "/api/chatbot": {"post": {"tags": ["chatbot"], "summary": "Ask the help assistant", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
    "/api/stats": {"get": {"tags": ["stats"], "summary": "Complaint statistics", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/workers": {"get": {"tags": ["workers"], "summary": "List workers", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/worker/assignments": {"get": {"tags": ["worker"], "summary": "Assignments of the calling worker", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/worker/assignments/{id}": {"patch": {"tags": ["worker"], "summary": "Report progress on an assignment", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
    "/api/worker/availability": {"patch": {"tags": ["worker"], "summary": "Update worker availability", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
