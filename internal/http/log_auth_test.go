package handlers_test

import (
	"net/http"
	"net/url"
	"testing"
)

// Login outcomes are logged without the submitted password.
func TestAuthLogging(t *testing.T) {
	ta := newTestApp(t)
	b := ta.browser(t)

	var failStatus, okStatus int
	entries := captureLogs(t, func() {
		failStatus = b.post("/login", url.Values{"email": {"alice@threadline.test"}, "password": {"Wrongpass1!"}}).StatusCode
		okStatus = b.post("/login", url.Values{"email": {"alice@threadline.test"}, "password": {"Passw0rd!"}}).StatusCode
	})
	if failStatus != http.StatusUnauthorized || okStatus != http.StatusFound {
		t.Fatalf("unexpected statuses: fail=%d ok=%d", failStatus, okStatus)
	}

	fail, ok := findLog(entries, "auth.login.fail")
	if !ok {
		t.Fatalf("expected auth.login.fail log, got %+v", entries)
	}
	if fail.Level != "warn" || fail.Fields["email"] != "alice@threadline.test" {
		t.Fatalf("unexpected fail entry: %+v", fail)
	}
	if _, leaked := fail.Fields["password"]; leaked {
		t.Fatal("password must not be logged")
	}

	success, ok := findLog(entries, "auth.login.success")
	if !ok {
		t.Fatalf("expected auth.login.success log, got %+v", entries)
	}
	if success.Level != "audit" {
		t.Fatalf("unexpected success entry: %+v", success)
	}
}
