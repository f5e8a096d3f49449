package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Spok95/sportclub-bot/internal/app"
	"github.com/Spok95/sportclub-bot/internal/config"
	"github.com/Spok95/sportclub-bot/internal/httpapi"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/session"
	"github.com/gofiber/fiber/v2"
)

func newApp(t *testing.T) (*fiber.App, *session.Manager) {
	t.Helper()
	m := session.NewManager("test-secret")
	a := httpapi.New(httpapi.Deps{Sessions: m, Config: &config.Config{AdminIDs: []int64{1, 700}}})
	return a, m
}

func cookieFor(t *testing.T, m *session.Manager, role models.Role) *http.Cookie {
	t.Helper()
	tok, _, err := m.Issue(models.Account{ID: 7, TelegramID: 700, Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: session.CookieName, Value: tok}
}

func call(t *testing.T, a *fiber.App, method, path, body string, c *http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c != nil {
		req.AddCookie(c)
	}
	resp, err := a.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp, out
}

func TestAdminRoutes_AccessDenied(t *testing.T) {
	a, m := newApp(t)
	tok, _, err := m.Issue(models.Account{ID: 8, TelegramID: 701, Role: models.Admin})
	if err != nil {
		t.Fatal(err)
	}
	removedAdmin := &http.Cookie{Name: session.CookieName, Value: tok}
	cases := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no session", nil},
		{"guardian", cookieFor(t, m, models.Guardian)},
		{"forged", &http.Cookie{Name: session.CookieName, Value: "not-a-jwt"}},
		{"removed from admin list", removedAdmin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := call(t, a, http.MethodGet, "/api/admin/payments", "", tc.cookie)
			if resp.StatusCode != http.StatusForbidden {
				t.Fatalf("status=%d, want 403", resp.StatusCode)
			}
			if body["success"] != false || body["error"] != "Access denied" {
				t.Fatalf("body=%v", body)
			}
		})
	}
}

func TestGuardianRoutes_NeedSession(t *testing.T) {
	a, _ := newApp(t)
	resp, body := call(t, a, http.MethodGet, "/api/participants", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", resp.StatusCode)
	}
	if body["success"] != false {
		t.Fatalf("body=%v", body)
	}
}

func TestBusinessErrors_Return200(t *testing.T) {
	a, m := newApp(t)
	admin := cookieFor(t, m, models.Admin)
	parent := cookieFor(t, m, models.Guardian)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		cookie *http.Cookie
		want   string
	}{
		{"weekday out of range", http.MethodPost, "/api/admin/schedule",
			`{"sport_group_id":1,"day_of_week":7,"start_time":"18:00","end_time":"19:00"}`, admin, "Некорректные поля"},
		{"end before start", http.MethodPost, "/api/admin/schedule",
			`{"sport_group_id":1,"day_of_week":2,"start_time":"19:00","end_time":"18:00"}`, admin, "позже начала"},
		{"bad clock", http.MethodPost, "/api/admin/schedule",
			`{"sport_group_id":1,"day_of_week":2,"start_time":"7pm","end_time":"21:00"}`, admin, "ЧЧ:ММ"},
		{"unknown payment status", http.MethodGet, "/api/admin/payments?status=paid", "", admin, "Неизвестный статус"},
		{"bad id", http.MethodDelete, "/api/admin/discounts/abc", "", admin, "Некорректный идентификатор"},
		{"short code", http.MethodPost, "/api/auth/verify", `{"code":"12ab"}`, parent, "6 цифр"},
		{"bad json", http.MethodPost, "/api/admin/attendance/save", `{`, admin, "Некорректный JSON"},
		{"bad absence reason", http.MethodPost, "/api/admin/attendance/save",
			`{"attendance_id":1,"participants":[{"id":2,"is_present":false,"absence_reason":"sick"}]}`, admin, "Некорректные поля"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := call(t, a, tc.method, tc.path, tc.body, tc.cookie)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status=%d, want 200 (body=%v)", resp.StatusCode, body)
			}
			msg, _ := body["error"].(string)
			if body["success"] != false || !strings.Contains(msg, tc.want) {
				t.Fatalf("body=%v, want error containing %q", body, tc.want)
			}
		})
	}
}

func TestContact_Public(t *testing.T) {
	m := session.NewManager("x")
	a := httpapi.New(httpapi.Deps{Sessions: m, Config: &config.Config{
		Contact: config.Contact{Phone: "+7 900 000 00 00", Name: "Директор"},
	}})
	resp, body := call(t, a, http.MethodGet, "/api/parent/contact", "", nil)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("status=%d body=%v", resp.StatusCode, body)
	}
	info, _ := body["contact_info"].(map[string]any)
	if info["phone"] != "+7 900 000 00 00" {
		t.Fatalf("contact_info=%v", info)
	}
}

func TestRequestID(t *testing.T) {
	a, _ := newApp(t)

	resp, _ := call(t, a, http.MethodGet, "/api/parent/contact", "", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("request id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/parent/contact", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := a.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id=%q, want echo", got)
	}
}

func TestHealthz_WithoutDB(t *testing.T) {
	a, _ := newApp(t)
	resp, _ := call(t, a, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", resp.StatusCode)
	}
}

type failingSweeper struct{ err error }

func (f failingSweeper) Sweep(context.Context) (app.SweepResult, error) { return app.SweepResult{}, f.err }

func TestUnexpectedError_500WithText(t *testing.T) {
	m := session.NewManager("test-secret")
	a := httpapi.New(httpapi.Deps{
		Sessions: m,
		Config:   &config.Config{AdminIDs: []int64{700}},
		Sweeper:  failingSweeper{err: errors.New("list low balance: connection refused")},
	})

	resp, body := call(t, a, http.MethodPost, "/api/admin/low-balance/notify", "", cookieFor(t, m, models.Admin))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", resp.StatusCode)
	}
	msg, _ := body["error"].(string)
	if body["success"] != false || !strings.Contains(msg, "connection refused") {
		t.Fatalf("body=%v", body)
	}
}
