// Package docs registers the swagger spec served at /swagger/*any.
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
        "/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign up",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/signup/verify/{userid}": {
            "post": {
                "tags": ["Auth"],
                "summary": "Confirm a signup OTP",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/signup/resend/{userid}": {
            "post": {
                "tags": ["Auth"],
                "summary": "Resend a signup OTP",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/auth/google": {
            "post": {
                "tags": ["Auth"],
                "summary": "Google login",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/password/forgot": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request a password reset OTP",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/password/reset": {
            "post": {
                "tags": ["Auth"],
                "summary": "Reset password with an OTP",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current account",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update current account",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/me/export": {
            "get": {
                "tags": ["Users"],
                "summary": "Export current account as PDF",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PCTE Koshish Planning API",
	Description:      "Account lifecycle service: signup, OTP verification, login, password reset, Google login.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
