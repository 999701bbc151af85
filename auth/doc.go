// Package auth models the signed-in admin: roles, identity, token claims and
// the role-based guard the dashboard consults before writes.
//
// Tokens are decoded without signature verification. The API remains the
// authority; these checks only keep a client from sending requests its
// role would be refused.
package auth
