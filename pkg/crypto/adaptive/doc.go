// Package adaptive seals small secrets, such as service account private
// keys, with an AEAD cipher picked for the host.
//
// AES-256-GCM is used where the CPU accelerates AES and ChaCha20-Poly1305
// elsewhere. Sealed text names its cipher, so a value sealed on one host
// opens on any other holding the same 32-byte key:
//
//	sealed:aes-gcm:<base64(nonce|ciphertext|tag)>
//
// The additional data passed to Seal must be passed again to Open. The
// server binds each private key to its client_email this way.
package adaptive
