// Package htmltest provides an HTML renderer for handler tests that records
// which template was executed with which data instead of executing it.
package htmltest

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// Page is one recorded render call.
type Page struct {
	Name string
	Data gin.H
}

type Renderer struct {
	mu    sync.Mutex
	pages []Page
}

func New() *Renderer { return &Renderer{} }

func (r *Renderer) Instance(name string, data any) render.Render {
	h, _ := data.(gin.H)
	r.mu.Lock()
	r.pages = append(r.pages, Page{Name: name, Data: h})
	r.mu.Unlock()
	return page{name: name}
}

// Last returns the most recent render call.
func (r *Renderer) Last() Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pages) == 0 {
		return Page{}
	}
	return r.pages[len(r.pages)-1]
}

type page struct {
	name string
}

func (p page) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	_, err := io.WriteString(w, "template:"+p.name)
	return err
}

func (p page) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
