// Package identity mints letter numbers and the scannable tokens that point
// at their public verification page.
package identity

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// NumberLength is the fixed width of a letter number.
const NumberLength = 12

// DefaultImageSize is the side of the rendered QR code in pixels.
const DefaultImageSize = 256

// VerificationToken is the rendered QR code for a verification URL.
type VerificationToken struct {
	URL    string
	PNG    []byte
	Base64 string
}

// Identity is what a new letter receives at submission time.
type Identity struct {
	Number string
	Token  VerificationToken
}

// Generator derives letter numbers and verification tokens.
type Generator struct {
	baseURL string
	size    int
	level   qrcode.RecoveryLevel
	newID   func() uuid.UUID
}

// Option configures a Generator.
type Option func(*Generator)

// WithImageSize overrides the rendered image size.
func WithImageSize(px int) Option {
	return func(g *Generator) {
		g.size = px
	}
}

// WithIDSource replaces the UUID source, mainly for tests.
func WithIDSource(fn func() uuid.UUID) Option {
	return func(g *Generator) {
		g.newID = fn
	}
}

// NewGenerator creates a generator building links under baseURL.
func NewGenerator(baseURL string, opts ...Option) *Generator {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	g := &Generator{
		baseURL: baseURL,
		size:    DefaultImageSize,
		level:   qrcode.Medium,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mint returns a fresh number together with its token.
func (g *Generator) Mint() (Identity, error) {
	number := g.NewNumber()
	token, err := g.Token(number)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Number: number, Token: token}, nil
}

// NewNumber returns the first 12 hex characters of a random UUID, upper-cased.
func (g *Generator) NewNumber() string {
	hex := strings.ReplaceAll(g.newID().String(), "-", "")
	return strings.ToUpper(hex[:NumberLength])
}

// VerificationURL is the public page a scanned token leads to.
func (g *Generator) VerificationURL(number string) string {
	return g.baseURL + "verify/" + number
}

// Token renders the QR code for number. Same input, same bytes.
func (g *Generator) Token(number string) (VerificationToken, error) {
	url := g.VerificationURL(number)
	png, err := qrcode.Encode(url, g.level, g.size)
	if err != nil {
		return VerificationToken{}, fmt.Errorf("encode qr code: %w", err)
	}
	return VerificationToken{
		URL:    url,
		PNG:    png,
		Base64: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ValidNumber reports whether s has the shape of a letter number.
func ValidNumber(s string) bool {
	if len(s) != NumberLength {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
