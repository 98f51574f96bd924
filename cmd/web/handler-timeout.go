package main

import (
	"net/http"
	"time"
)

const timeoutBody = `<html lang="en">
<head><title>Still writing</title></head>
<body>
<h1>Your guide is taking longer than usual</h1>
<p>It is still being written. Retry in a moment to pick it up.</p>
<div>
    <button type="button">
        <span>Retry</span>
        <script>
          document.currentScript.parentElement.addEventListener('click', function () {
            location.reload();
          });
        </script>
    </button>
</div>
</body>
</html>
`

// timeoutHandler responds with a 503 Service Unavailable error when the handler does not meet the deadline.
// A guide generation that times out here keeps running and is shared with the retry.
func timeoutHandler(h http.Handler, writeTimeout time.Duration) http.Handler {
	// Slightly shorter than the server's write timeout so that the 503 still reaches the client.
	httpHandlerTimeout := writeTimeout - 500*time.Millisecond //nolint:mnd // 500ms
	return http.TimeoutHandler(h, httpHandlerTimeout, timeoutBody)
}
