package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/domain"
)

func capture(t *testing.T, fn func()) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	flags := stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	t.Cleanup(func() {
		stdlog.SetOutput(os.Stderr)
		stdlog.SetFlags(flags)
	})
	fn()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestBackgroundError(t *testing.T) {
	lines := capture(t, func() {
		Error(nil, "outbox.publish.fail", errors.New("broker down"), map[string]any{"id": "m-1"})
	})
	require.Len(t, lines, 1)
	l := lines[0]
	assert.Equal(t, "error", l["level"])
	assert.Equal(t, "outbox.publish.fail", l["action"])
	assert.Equal(t, "broker down", l["err"])
	assert.Equal(t, map[string]any{"id": "m-1"}, l["fields"])
	assert.NotContains(t, l, "path")
}

func TestRequestFields(t *testing.T) {
	app := fiber.New()
	app.Post("/admin/inventory", func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-42")
		c.Locals("user", &domain.User{ID: "u-admin"})
		c.Status(fiber.StatusFound)
		Audit(c, "admin.inventory.save", map[string]any{"qty": 3})
		Security(c, "validation.fail", nil)
		return nil
	})

	lines := capture(t, func() {
		_, err := app.Test(httptest.NewRequest("POST", "/admin/inventory", nil))
		require.NoError(t, err)
	})
	require.Len(t, lines, 2)
	assert.Equal(t, "audit", lines[0]["level"])
	assert.Equal(t, "req-42", lines[0]["req_id"])
	assert.Equal(t, "u-admin", lines[0]["user_id"])
	assert.Equal(t, "POST", lines[0]["method"])
	assert.Equal(t, "/admin/inventory", lines[0]["path"])
	assert.Equal(t, float64(fiber.StatusFound), lines[0]["status"])
	assert.Equal(t, "warn", lines[1]["level"])
}

func TestUnencodableFieldStillLogs(t *testing.T) {
	lines := capture(t, func() {
		Info(nil, "odd.value", map[string]any{"ch": make(chan int)})
	})
	require.Len(t, lines, 1)
	assert.Equal(t, "odd.value", lines[0]["action"])
	assert.Contains(t, lines[0]["fields"], "marshal_error")
}
