package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAPIKeyGuide prints how to obtain RapidAPI credentials
func ShowAPIKeyGuide(w io.Writer) {
	line := strings.Repeat("=", 72)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "RAPIDAPI CREDENTIALS")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "gridpreview fetches posts through the instagram-scraper-api2 API on RapidAPI.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Sign in at https://rapidapi.com and subscribe to instagram-scraper-api2")
	fmt.Fprintln(w, "  2. Open the API's Endpoints tab and copy the X-RapidAPI-Key value")
	fmt.Fprintln(w, "  3. Run `gridpreview auth login` and paste the key when asked")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Alternatively export RAPIDAPI_KEY and RAPIDAPI_HOST before starting the server.")
	fmt.Fprintln(w, line)
}
