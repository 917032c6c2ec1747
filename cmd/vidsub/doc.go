// Package main hosts the vidsub CLI entrypoint and command graph.
//
// "vidsub serve" runs the HTTP server. Task commands (submit, run, show,
// list, subtitle) are thin clients of that server's JSON API, while
// "tools status", "classify" and "config" work locally without a server.
package main
