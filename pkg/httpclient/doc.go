// Package httpclient builds the HTTP session shared by the resolver, the
// renderer and the download manager.
//
// Every request carries a browser-like header set (User-Agent,
// Accept-Language, Accept, Connection) unless the caller sets its own value.
// GET and HEAD requests are retried on connection errors and on 403, 429,
// 500, 502, 503 and 504, waiting BackoffFactor * 2^i seconds before retry i
// or whatever the server's Retry-After asks for. The last response is
// returned whatever its status: callers inspect StatusCode themselves.
//
//	client := httpclient.New(httpclient.DefaultOptions(), log)
//	resp, err := client.Get(ctx, url)
//	if err != nil {
//		// errs.ErrorTypeTransport: the host could not be reached
//	}
//	defer resp.Body.Close()
package httpclient
