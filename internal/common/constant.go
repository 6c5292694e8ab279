// Package common contains shared constants, sentinel errors and small
// helpers used across equipkeeper components.
package common

// AccessTokenEnvName is the environment variable the CLI reads the access
// token from when --token is not given.
const AccessTokenEnvName = "EQUIPKEEPER_TOKEN"

// UIIDSize is the number of random bytes behind a public identifier.
const UIIDSize = 6
