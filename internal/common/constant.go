package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// TokenTypeBearer is the token_type reported by the login endpoint.
const TokenTypeBearer = "bearer"
