// Package secret resolves credentials referenced from configuration.
//
// A configuration value may embed environment variables (${NAME}, strict:
// a missing variable is an error) and secret references of the form
//
//	secretref:<provider>:<ref>
//
// either as the whole value or inline ("Bearer secretref:env:TOKEN").
// Two providers are built in: "env" reads an environment variable and
// "file" reads a file, trimming the trailing newline.
package secret
