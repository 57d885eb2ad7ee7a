package http

import (
	"fmt"
	"io"
	"net/http"
)

const statusPageHTML = `<html>
<head><title>%[1]d %[2]s</title></head>
<body>
<center><h1>%[1]d %[2]s</h1></center>
<hr><center>%[3]s</center>
</body>
</html>
`

// writeStatusPage writes the small HTML page sent with 403 and 404 responses
// to GET requests.
func writeStatusPage(w http.ResponseWriter, status int, serverName string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, fmt.Sprintf(statusPageHTML, status, http.StatusText(status), serverName))
}
