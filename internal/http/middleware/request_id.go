package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDLocal  = "request_id"
	maxRequestIDLen = 64
)

// RequestID tags each request with an ID, reusing the caller's X-Request-ID
// when it is short and made of URL-safe characters. The ID is echoed on the
// response and logged with every access and error line.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(RequestIDHeader)
		if !acceptableRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Locals(requestIDLocal, rid)
		c.Set(RequestIDHeader, rid)
		return c.Next()
	}
}

// RequestIDFrom returns the ID assigned by RequestID, or "" outside it.
func RequestIDFrom(c *fiber.Ctx) string {
	rid, _ := c.Locals(requestIDLocal).(string)
	return rid
}

func acceptableRequestID(rid string) bool {
	if rid == "" || len(rid) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		switch ch := rid[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}
