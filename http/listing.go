package http

import (
	"html/template"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sagarc03/servefile"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Index of {{.Title}}</title></head>
<body>
<h1>Index of {{.Title}}</h1>
<table>
<tr><th>Name</th><th>Size</th><th>Modified</th></tr>
{{- if .Parent}}
<tr><td><a href="{{.Parent}}">../</a></td><td></td><td></td></tr>
{{- end}}
{{- range .Rows}}
<tr><td><a href="{{.Href}}">{{.Name}}</a></td><td>{{.Size}}</td><td{{if .Exact}} title="{{.Exact}}"{{end}}>{{.Modified}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

type listingPage struct {
	Title  string
	Parent string
	Rows   []listingRow
}

type listingRow struct {
	Name     string
	Href     string
	Size     string
	Modified string
	Exact    string
}

// newListingPage builds the template data for the directory at dir, a path
// relative to the served root without a leading slash.
func newListingPage(dir string, entries []servefile.DirectoryEntry, now time.Time) listingPage {
	base := "/"
	if dir != "" {
		base = "/" + dir + "/"
	}

	page := listingPage{Title: base, Rows: make([]listingRow, 0, len(entries))}
	if dir != "" {
		page.Parent = escapePath(path.Dir(strings.TrimSuffix(base, "/")))
		if page.Parent != "/" {
			page.Parent += "/"
		}
	}

	for _, e := range entries {
		row := listingRow{Name: e.Name, Href: escapePath(base + e.Name), Size: "-", Modified: "-"}
		if e.IsDir {
			row.Name += "/"
			row.Href += "/"
		}
		if e.Size != nil {
			row.Size = humanize.IBytes(*e.Size)
		}
		if e.ModTime != nil {
			row.Modified = humanize.RelTime(*e.ModTime, now, "ago", "from now")
			row.Exact = e.ModTime.UTC().Format(http.TimeFormat)
		}
		page.Rows = append(page.Rows, row)
	}

	return page
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

func writeListing(w http.ResponseWriter, dir string, entries []servefile.DirectoryEntry) error {
	w.WriteHeader(http.StatusOK)
	return listingTemplate.Execute(w, newListingPage(dir, entries, time.Now()))
}
