// Package password hashes and verifies passwords with Argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify reads the cost parameters from the stored hash, so raising them in
// Config does not lock out existing users. [Argon2.NeedsUpgrade] tells the
// caller when a stored hash should be replaced after the next successful login.
package password
