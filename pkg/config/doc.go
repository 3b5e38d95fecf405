// Package config loads the statesqa settings from an optional config file,
// a .env file and the environment, and derives the logger, model client
// and store configuration from them.
//
// Precedence, from highest to lowest: environment variables, the config
// file, .env entries not already set in the environment, and defaults.
package config
