package handlers

import (
	"fmt"

	html "github.com/gofiber/template/html/v2"
)

// NewEngine loads the html templates under dir with the view helpers they use.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("money", money)
	return engine
}

// money formats an amount in the smallest currency unit as rupees.
func money(p int64) string {
	sign := ""
	if p < 0 {
		sign, p = "-", -p
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, p/100, p%100)
}
