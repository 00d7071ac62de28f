// Package log writes one JSON line per application event through the standard logger.
//
// Handlers pass their fiber context so the line carries request id, client, route and the
// signed-in user. Background work (fulfillment, outbox relay, startup) passes nil.
package log

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelAudit Level = "audit"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type record struct {
	TS     string         `json:"ts"`
	Level  Level          `json:"level"`
	ReqID  string         `json:"req_id,omitempty"`
	IP     string         `json:"ip,omitempty"`
	Method string         `json:"method,omitempty"`
	Path   string         `json:"path,omitempty"`
	UserID string         `json:"user_id,omitempty"`
	Action string         `json:"action"`
	Status int            `json:"status,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func newRecord(lvl Level, action string, fields map[string]any) *record {
	return &record{
		TS:     time.Now().UTC().Format(time.RFC3339),
		Level:  lvl,
		Action: action,
		Fields: fields,
	}
}

// from copies request metadata off c. The status is whatever the handler has set so far.
func (r *record) from(c *fiber.Ctx) *record {
	if c == nil {
		return r
	}
	r.IP, r.Method, r.Path = c.IP(), c.Method(), c.Path()
	r.Status = c.Response().StatusCode()
	if rid, _ := c.Locals("requestid").(string); rid != "" {
		r.ReqID = rid
	}
	if u, _ := c.Locals("user").(*domain.User); u != nil {
		r.UserID = u.ID
	}
	return r
}

func (r *record) failed(err error) *record {
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

func (r *record) emit() {
	b, err := json.Marshal(r)
	if err != nil {
		// A field value that cannot be encoded still leaves a trace of the event.
		r.Fields = map[string]any{"marshal_error": err.Error()}
		b, _ = json.Marshal(r)
	}
	log.Println(string(b))
}

// Info records a routine event.
func Info(c *fiber.Ctx, action string, fields map[string]any) {
	newRecord(LevelInfo, action, fields).from(c).emit()
}

// Audit records a state change made by a user: who did what to which record.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	newRecord(LevelAudit, action, fields).from(c).emit()
}

// Security records denied access, failed validation, tampering and similar signals at warn.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	newRecord(LevelWarn, action, fields).from(c).emit()
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	newRecord(LevelError, action, fields).from(c).failed(err).emit()
}

// Setup tees the standard logger into file when set and returns a closer for it.
func Setup(file string) io.Closer {
	if file == "" {
		return io.NopCloser(nil)
	}
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		Error(nil, "log.file.open", err, map[string]any{"file": file})
		return io.NopCloser(nil)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f
}
