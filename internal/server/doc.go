// Package server runs the short-lived localhost server that completes provider sign-in.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux] with a middleware stack. [Middleware] is applied in reverse order
// (last added executes first). Handlers that own several routes implement [Handler] and register all of
// them at once.
//
// # PKCE callback
//
// `encore auth login --provider <name>` generates a code verifier, opens the browser on the auth service's
// authorize URL once [Listen] has opened the port, then calls [WaitForCallback]. The auth service redirects to /callback?code=...;
// [CallbackHandler] exchanges the code with the verifier and delivers the session on its result channel.
// Only the first callback is processed, later requests get an error page.
//
// The server shuts down as soon as a result arrives, the context is cancelled or the timeout elapses.
package server
