/*
Package security provides the encryption primitives for tab content and the
credential context that carries the session password.

Tab content can be stored encrypted. Each tab has its own random salt; the
content key is derived from the user's password and that salt with
PBKDF2-SHA256, and the JSON encoded delta is sealed with AES-256-GCM:

	key        = PBKDF2(password, salt, 100000, SHA-256, 32 bytes)
	stored     = base64(nonce || AES-256-GCM(key, nonce, json(delta)))

A wrong password surfaces as ErrDecrypt, never as garbage content.

# Credentials

The password is only held for the session. Components that need it receive
a Credentials value explicitly:

	creds := security.NewSessionCredentials(password)
	eng := engine.New(gw, engine.Options{Credentials: creds})

	// on logout
	creds.Clear()

Writes that require encryption fail when Credentials reports no secret;
they never fall back to plaintext.

# Password Verification

HashPassword and VerifyPassword let the embedded backend check a password
before it encrypts anything, so a typo cannot seal content under a key
nobody knows.
*/
package security
