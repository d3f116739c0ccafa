// Package gateway is the HTTP layer shared by every provider and the
// downloader.
//
// A single Client owns the underlying *http.Client. Providers issue JSON API
// calls through Request/RequestJSON, which apply default headers, follow
// HTTP 429 responses by sleeping for the server's Retry-After and repeating
// the identical request, and turn any other non-200 status into an empty
// result unless RaiseOnError is requested. The downloader and probes use Do
// and Head for raw access to response bodies and status codes.
//
//	gw := gateway.NewClient(cfg.Gateway, logger.GetLogger())
//	defer gw.Close()
//
//	var body struct{ Message string `json:"message"` }
//	err := gw.RequestJSON(ctx, "https://nekobot.xyz/api/image", &body,
//	    gateway.WithParam("type", "neko"))
package gateway
