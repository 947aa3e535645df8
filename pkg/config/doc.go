// Package config loads all service configuration from ALOHAWAII_-prefixed
// environment variables and validates it before the server starts.
package config
