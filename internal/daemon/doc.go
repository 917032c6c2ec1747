// Package daemon runs the long-lived vidsub server.
//
// It takes the single-instance flock, serves the JSON API over net/http, and
// drains the workflow engine on shutdown. Handlers only translate between
// HTTP and the engine; all task state lives in the engine's store.
package daemon
