// Package templates renders the storefront's HTML pages. Every page is
// parsed together with layout.html and defines a "content" block.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"

	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/session"
)

//go:embed html/*.html
var files embed.FS

const layout = "html/layout.html"

// Renderer implements gin's render.HTMLRender over one template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// Load parses all pages. mediaURL turns a stored media key into a URL.
func Load(mediaURL func(string) string) (*Renderer, error) {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"media": mediaURL,
		"seq": func(from, to int) []int {
			var out []int
			for i := from; i <= to; i++ {
				out = append(out, i)
			}
			return out
		},
	}

	names, err := fs.Glob(files, "html/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == layout {
			continue
		}
		t, err := template.New(path.Base(name)).Funcs(funcs).ParseFS(files, layout, name)
		if err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", name, err)
		}
		r.pages[path.Base(name)] = t
	}
	return r, nil
}

func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["404.html"]
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

// Render adds the values every page needs (current user, cart badge,
// flash messages) and writes the page.
func Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if user := middleware.CurrentUser(c); user != nil {
		data["User"] = user
	}
	data["CartCount"] = c.GetInt(middleware.CartCountKey)
	if sess := session.FromContext(c); sess != nil {
		data["Messages"] = sess.Flashes()
	}
	data["Path"] = c.Request.URL.Path
	c.HTML(status, name, data)
}

func NotFound(c *gin.Context) {
	Render(c, http.StatusNotFound, "404.html", gin.H{"Title": "Page not found"})
}
