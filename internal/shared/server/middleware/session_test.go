package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/page"
	"coverletter-backend/internal/sessions"
)

func TestSessionIssuesCookieOnce(t *testing.T) {
	store := sessions.NewStore(time.Hour, func(id string) *page.Controller {
		return page.NewController(id, nil, nil)
	}, nil)

	router := gin.New()
	router.Use(Session(store))
	router.GET("/", func(c *gin.Context) {
		if PageFromContext(c) == nil {
			t.Errorf("expected page in context")
		}
		c.String(http.StatusOK, SessionIDFromContext(c))
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := first.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("expected one %s cookie, got %v", SessionCookie, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("expected HttpOnly session cookie")
	}
	if cookies[0].Value != first.Body.String() {
		t.Fatalf("cookie %q does not match session id %q", cookies[0].Value, first.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	if len(second.Result().Cookies()) != 0 {
		t.Fatalf("expected no new cookie for a known session")
	}
	if second.Body.String() != cookies[0].Value {
		t.Fatalf("expected same session id, got %q", second.Body.String())
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}
}
