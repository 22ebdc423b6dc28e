// Package web embeds the calculator pages and offline app assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"slices"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// IconSizes are the square app icon sizes listed in the manifest
var IconSizes = []int{72, 96, 128, 144, 152, 192, 384, 512}

// Templates parses the page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"join": joinRoutes,
	}).ParseFS(templateFS, "templates/*.html")
}

// Static returns the static asset tree rooted at static/
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">
  <rect width="%[1]d" height="%[1]d" fill="#0d6efd" rx="%[2]d"/>
  <text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" fill="white" font-family="Arial, sans-serif" font-size="%[3]d" font-weight="bold">MME</text>
</svg>
`

// WriteIcon renders the app icon at size. Only IconSizes are supported.
func WriteIcon(w io.Writer, size int) error {
	if !slices.Contains(IconSizes, size) {
		return fmt.Errorf("unsupported icon size %d", size)
	}
	_, err := fmt.Fprintf(w, iconSVG, size, size/9, size/4)
	return err
}
