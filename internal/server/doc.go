// Package server provides the small HTTP toolkit shared by the login callback server and the API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] values wrap handlers in reverse order (last added executes first). They have the
// same shape as chi middleware, so [LoggingMiddleware] and [RecoverMiddleware] also wrap the API
// router in internal/web.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /path").
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback for `tunebox login`.
//
// The handler validates the state parameter, exchanges the code through a services.Identity,
// fetches the profile and sends a single [OAuthResult] through a channel. Later callbacks are
// rejected.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and
// adds routes, so a handler can register several paths at once.
package server
