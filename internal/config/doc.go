// Package config loads, normalizes, and validates vidsub configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as
// VIDSUB_TRANSLATION_API_KEY. Downstream packages receive absolute upload and
// scratch roots, canonical language tags, and bounded timeouts.
package config
