// Package cli implements the interactive harness of the auth service: a
// numbered menu that drives register, login, forgot password, reset password
// and token verification against a live AuthService.
package cli
