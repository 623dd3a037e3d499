// Package config loads, normalizes, and validates papersum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads config/.env and ./.env, and honours the
// GOOGLE_API_KEY environment fallback. The Config type centralizes every knob
// the CLI needs, so the dispatcher, Gemini client, and fetcher all receive
// their settings by value from one pass.
package config
