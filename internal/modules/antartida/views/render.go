package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
)

var pageTmpl *template.Template

// loadTemplatesFromFS loads the page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pageTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

var errNotLoaded = errors.New("page template not loaded: call views.LoadTemplates during startup")

// RenderPage executes the full page into w.
func RenderPage(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errNotLoaded
	}
	return pageTmpl.ExecuteTemplate(w, "page.html", data)
}

// RenderStatePartial executes only the state section (banner, chart and
// table) followed by an out-of-band submit button, so a settled query
// re-enables the form. Used for HTMX polling while a query is in flight.
func RenderStatePartial(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errNotLoaded
	}
	partial := *data
	partial.Partial = true
	return pageTmpl.ExecuteTemplate(w, "state", &partial)
}
