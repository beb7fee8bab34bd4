package types

// JSONWebKey is the public JSON web key (RFC 7517) of a signing key
type JSONWebKey struct {
	Algorithm string `json:"alg,omitempty"`
	KeyID     string `json:"kid,omitempty"` // RFC 7638 SHA-256 thumbprint
	KeyType   string `json:"kty"`
	Use       string `json:"use,omitempty"`
	N         string `json:"n,omitempty"`   // RSA modulus
	E         string `json:"e,omitempty"`   // RSA public exponent
	Crv       string `json:"crv,omitempty"` // EC or OKP curve
	X         string `json:"x,omitempty"`   // EC x coordinate or OKP public key
	Y         string `json:"y,omitempty"`   // EC y coordinate
}

// JWKS is a set of JSON web keys, as served by a jwks_uri endpoint
type JWKS struct {
	Keys []JSONWebKey `json:"keys"`
}

// PublicKey is the public half of an imported private key, in PEM and JWK form
type PublicKey struct {
	Algorithm string     `json:"algorithm"`
	PEM       string     `json:"pem"`
	JWK       JSONWebKey `json:"jwk"`
}

// JWKS wraps the key in a single entry key set
func (p *PublicKey) JWKS() JWKS {
	return JWKS{Keys: []JSONWebKey{p.JWK}}
}
