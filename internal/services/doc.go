// Package services implements the client for the platform's Backend-as-a-Service project.
//
// # Client
//
// [Client] speaks the REST dialects of the four backend services and satisfies the
// [Database], [Storage], [Functions] and [Authenticator] interfaces, so callers depend on the
// interfaces and tests substitute their own.
//
// Requests carry the project anon key in the apikey header. After sign-in, [Client.WithSession]
// attaches an [oauth2.TokenSource] so the bearer token is the user's access token, refreshed on demand
// by [SessionSource]. An optional [rate.Limiter] throttles every request.
//
// # Database
//
// [QueryBuilder] builds PostgREST requests: column selection, equality and pattern filters,
// inner-join filters on related tables, ordering and limits, plus insert, upsert, update and delete.
// Named procedures are called with [Client.RPC].
//
// # Catalog
//
// [Catalog] layers typed calls for the artist and listener workflows on top of the interfaces:
// albums, songs, tags and their association tables, storage objects, listener likes and library
// entries, and the serverless functions.
//
// # Error Handling
//
// Failed responses decode into [*Error], which matches shared sentinels with errors.Is:
//   - [shared.ErrAPIRequest] : any backend failure
//   - [shared.ErrNotAuthenticated] : status 401
//   - [shared.ErrNotFound] : status 404 or an empty single-row result
//   - [shared.ErrServiceUnavailable] : status 5xx or a transport failure
//
// # Debugging
//
// [APIService] sends raw requests and reports status, headers and body as-is.
package services
