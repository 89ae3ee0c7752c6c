// Package types defines the schema metadata entities, the store ports the
// consistency engine runs against, the result envelope, and the standard
// error values for schemata.
package types
