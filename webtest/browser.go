// Package webtest drives a gin engine like a browser: it keeps cookies
// between requests and posts urlencoded forms.
package webtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

type Browser struct {
	Handler http.Handler
	cookies map[string]*http.Cookie
}

func NewBrowser(h http.Handler) *Browser {
	return &Browser{Handler: h, cookies: make(map[string]*http.Cookie)}
}

func (b *Browser) Get(path string) *httptest.ResponseRecorder {
	return b.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *Browser) PostForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.Do(req)
}

// Do sends req with the stored cookies and records any the response sets.
func (b *Browser) Do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.Handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// Follow issues a GET for the response's Location header.
func (b *Browser) Follow(w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	return b.Get(w.Header().Get("Location"))
}
