// Package errors turns failures into operator-facing CLI errors.
//
// A CLIError carries a message, an optional detail and a suggestion,
// usually the command that fixes the problem:
//
//	Required config key PG_HOST is missing for environment UAE POC.
//
//	Run 'qonboard config set PG_HOST VALUE --env "UAE POC"'.
//
// Wrap classifies an error as a configuration, authentication or
// connection problem and leaves anything else unchanged.
package errors
