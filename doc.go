// Package signup implements a user registration and authentication
// layer: a configuration driven registration pipeline plus thin REST
// and GraphQL adapters over the same tagged outcome.
//
// The pipeline receives its collaborators (settings provider, role
// resolver, user store, credential hasher, token issuer, confirmation
// mailer) through explicit injection so every piece can be swapped in
// tests. Rejections are categorized errors carrying a stable text
// code and, where it applies, the offending form field.
package signup
