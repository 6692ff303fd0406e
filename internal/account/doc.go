// Package account defines the data model shared by every tokenwatch stage.
//
// The main types are:
//
//   - [Credential]: an account identifier and its secret token
//   - [ProbeResult]: the classified outcome of validating one credential
//   - [Profile]: the last-known display record for an account
//   - [Table]: the persisted mapping from identifier to [Profile]
//
// The package has no behaviour beyond small helpers on these types, so that
// the prober, decoder, store and renderer can agree on a vocabulary without
// importing each other.
package account
