package keys

import (
	"fmt"
	"strings"

	"devtoolbox/cryptotool/codec"
)

type (
	Family         int
	Representation int
	Role           int
	Kind           int
)

const (
	Symmetric Family = iota
	Asymmetric
)

const (
	Raw Representation = iota
	Base64
	PEM
)

const (
	EncryptDecrypt Role = iota
	SignVerify
)

const (
	Secret Kind = iota
	Public
	Private
)

// Material is a fully decoded key. Bytes hold the raw AES key, an SPKI DER
// public key or a PKCS#8 DER private key depending on Kind.
type Material struct {
	Family         Family
	KeySizeBits    int
	Representation Representation
	Role           Role
	Kind           Kind
	Bytes          []byte
}

// KeyPair is a generated RSA key pair together with its PEM exports.
type KeyPair struct {
	Public     *Material
	Private    *Material
	PublicPEM  string
	PrivatePEM string
}

// Export renders the material in its representation. Secret keys and
// non-PEM asymmetric keys export as standard Base64.
func (m *Material) Export() string {
	if m.Representation == PEM {
		switch m.Kind {
		case Public:
			return codec.EncodePem(m.Bytes, codec.PublicKeyLabel)
		case Private:
			return codec.EncodePem(m.Bytes, codec.PrivateKeyLabel)
		}
	}
	return codec.EncodeBase64(m.Bytes, codec.Standard)
}

// IsSymmetric reports whether m is an AES key.
func (m *Material) IsSymmetric() bool {
	return m != nil && m.Family == Symmetric
}

func (f Family) String() string {
	switch f {
	case Symmetric:
		return "symmetric"
	case Asymmetric:
		return "asymmetric"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

func (r Representation) String() string {
	switch r {
	case Raw:
		return "raw"
	case Base64:
		return "base64"
	case PEM:
		return "pem"
	default:
		return fmt.Sprintf("Representation(%d)", int(r))
	}
}

func (r Role) String() string {
	switch r {
	case EncryptDecrypt:
		return "encrypt-decrypt"
	case SignVerify:
		return "sign-verify"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (k Kind) String() string {
	switch k {
	case Secret:
		return "secret"
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseRepresentation(s string) (Representation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw":
		return Raw, nil
	case "base64", "b64":
		return Base64, nil
	case "pem":
		return PEM, nil
	default:
		return Raw, fmt.Errorf("unknown key representation %q", s)
	}
}

