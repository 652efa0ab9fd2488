package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const styleCSS = `body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif;color:#1c1917;background:#fff;margin:0;padding:1rem;}
.report{max-width:760px;margin:0 auto;}
.report strong{color:#0f172a;}
.report ul{padding-left:1.2rem;}
.report li{margin:0.15rem 0;}
.report em{color:#57534e;}
@media print{@page{size:auto;margin:12mm;} body{padding:0;}}`

// RenderHTML renders the report as a standalone HTML document.
func RenderHTML(r Report) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(RenderMarkdown(r)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(r.Title) + "</title>" +
		"<style>" + styleCSS + "</style></head><body>" +
		"<section class='report'>" + content.String() + "</section>" +
		"</body></html>", nil
}
