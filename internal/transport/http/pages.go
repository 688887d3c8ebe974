package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var landingPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<title>Evently API</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; background: linear-gradient(135deg,#1d976c,#2c3e50); color: #fff; min-height: 100vh; display: flex; flex-direction: column; }
header { flex: 1; padding: 60px 20px; text-align: center; }
a.button { display: inline-block; margin: 10px; padding: 12px 24px; font-size: 16px; border-radius: 4px; text-decoration: none; background: rgba(255,255,255,0.2); color: #fff; transition: background 0.3s; }
a.button:hover { background: rgba(255,255,255,0.4); }
footer { text-align: center; padding: 20px; font-size: 14px; opacity: 0.8; }
</style>
</head>
<body>
<header>
  <h1>Evently API</h1>
  <p>Event ticketing backend: browse events, book tickets, organize your own.</p>
  <a class="button" href="/swagger/index.html">API documentation</a>
  <a class="button" href="/health">Health check</a>
</header>
<footer>Evently &mdash; REST API</footer>
</body>
</html>`

// RegisterPages serves the minimal landing page at the root.
func RegisterPages(e *echo.Echo) {
	e.GET("/", func(c echo.Context) error {
		return c.HTML(http.StatusOK, landingPageHTML)
	})
}
