// Package sns authenticates Amazon SNS push messages.
//
// A message is authentic when its Signature verifies, under the public key of
// the certificate served at SigningCertURL, over the canonical message: a
// fixed, type-dependent subset of the envelope fields sorted by name and
// written as "name\nvalue\n" pairs.
package sns
