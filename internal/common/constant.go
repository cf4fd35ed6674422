package common

// AccessTokenHeaderName is the HTTP header used to carry the bearer access
// token on requests to authenticated endpoints.
const AccessTokenHeaderName = "Authorization"

// EncryptionKeyHeaderName is the HTTP header used to carry the caller's raw
// user key (hex) on requests that touch protected fields. It is deliberately
// separate from the bearer token: authentication and data access are
// independent capabilities.
const EncryptionKeyHeaderName = "X-Encryption-Key"
