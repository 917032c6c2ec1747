// Package textutil holds small text helpers for file naming and display.
package textutil
