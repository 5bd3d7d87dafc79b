// Package settings resolves named string settings such as the OpenAI API key
// from explicit maps, the process environment, database session settings
// (PostgreSQL GUCs or MySQL user variables) and Redis hashes.
package settings
