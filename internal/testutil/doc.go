// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing dialogue tasks, both as validated
// *dialogue.Task values and as the raw maps a configuration file decodes to.
// They are not intended for production usage.
package testutil
