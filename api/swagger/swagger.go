package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Sekolo Pay API",
        "description": "School registration and payment processing backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Staff authentication"},
        {"name": "Payments", "description": "Checkout initiation and processor callbacks"},
        {"name": "Registrations", "description": "Registration records and admin workflow"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a staff user",
                "responses": {
                    "200": {"description": "Access token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user",
                "responses": {
                    "200": {"description": "User info"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/payments/initiate": {
            "post": {
                "tags": ["Payments"],
                "summary": "Build a hosted checkout redirect for a registration",
                "responses": {
                    "200": {"description": "Redirect URL"},
                    "400": {"description": "Missing registration id or parent email"},
                    "404": {"description": "Registration not found"}
                }
            }
        },
        "/payments/notify": {
            "post": {
                "tags": ["Payments"],
                "summary": "Receive an ITN callback from the payment processor",
                "responses": {
                    "200": {"description": "Payment verified and logged"},
                    "400": {"description": "Rejected notification"},
                    "404": {"description": "Unknown registration id"}
                }
            }
        },
        "/registrations": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Submit a new registration",
                "responses": {
                    "201": {"description": "Registration created"}
                }
            },
            "get": {
                "tags": ["Registrations"],
                "summary": "List registrations",
                "responses": {
                    "200": {"description": "Paginated registrations"}
                }
            }
        },
        "/registrations/{id}/status": {
            "get": {
                "tags": ["Payments"],
                "summary": "Poll the payment status of a registration",
                "responses": {
                    "200": {"description": "Status view"},
                    "404": {"description": "Registration not found"}
                }
            }
        },
        "/registrations/{id}/retry": {
            "post": {
                "tags": ["Payments"],
                "summary": "Retry payment for a failed registration",
                "responses": {
                    "200": {"description": "Fresh redirect URL"},
                    "412": {"description": "Registration not awaiting payment"}
                }
            }
        },
        "/registrations/{id}": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Get a registration with its payment events",
                "responses": {
                    "200": {"description": "Registration detail"},
                    "404": {"description": "Registration not found"}
                }
            }
        },
        "/registrations/{id}/approve": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Approve a paid registration",
                "responses": {
                    "200": {"description": "Registration submitted"},
                    "412": {"description": "Registration not awaiting approval"}
                }
            }
        },
        "/registrations/{id}/receipt": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Download the PDF receipt of a paid registration",
                "responses": {
                    "200": {"description": "PDF receipt"},
                    "412": {"description": "Payment not received"}
                }
            }
        },
        "/registrations/{id}/receipt-link": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Create a shareable receipt download link",
                "responses": {
                    "200": {"description": "Signed link with expiry"},
                    "412": {"description": "Payment not received"}
                }
            }
        },
        "/registrations/export": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Export the filtered registration list as CSV",
                "responses": {
                    "200": {"description": "CSV download"}
                }
            }
        },
        "/receipts/{token}": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Download a PDF receipt via a signed link",
                "responses": {
                    "200": {"description": "PDF receipt"},
                    "401": {"description": "Invalid or expired link"}
                }
            }
        }
    },
    "definitions": {
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
                "pagination": {"type": "object"}
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
