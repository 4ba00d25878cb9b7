// Package session holds the authenticated identity of the running client.
//
// The Store is the single source of truth for whether data fetching and the
// realtime channel may operate. Credentials survive restarts through a small
// file-backed storage (the "token" and "user" keys), restored at startup and
// removed on logout or on any unauthorized response from the backend.
package session
