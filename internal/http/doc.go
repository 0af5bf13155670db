// Package http provides the HTTP client used to fetch the vaccination feed.
//
// This package handles:
//   - GET requests with an Accept: application/json header
//   - Status code mapping to sentinel errors
//   - Opt-in retry with exponential backoff (disabled by default)
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	body, err := client.Get(ctx, url)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
package http
