package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageVersion is the sign-in message format version
const MessageVersion = 1

// NoncePlaceholder is emitted when nonce generation is disabled: the hex
// encoding of "Not in use", the same width as a real ten byte nonce
const NoncePlaceholder = "4e6f7420696e20757365"

const headerSep = " wants you to sign in with your "
const headerSuffix = " account:"

// SignInMessage is the sign-in request a wallet is asked to sign. Timestamps
// are nanoseconds since the Unix epoch. String and ParseSignInMessage are
// inverses for any message built here, so the exact signed bytes can always
// be reproduced from the structured form.
type SignInMessage struct {
	Domain         string
	Address        Address
	Statement      string
	URI            string
	Version        uint8
	ChainID        string
	Nonce          string
	IssuedAt       uint64
	ExpirationTime uint64
}

// BuildSignInMessage composes the message for an address from the deployment
// settings. Expiration is issuance plus the sign-in TTL.
func BuildSignInMessage(addr Address, s Settings, nonce string, now time.Time) SignInMessage {
	issued := uint64(now.UnixNano())
	return SignInMessage{
		Domain:         s.Domain,
		Address:        addr,
		Statement:      s.Statement,
		URI:            s.URI,
		Version:        MessageVersion,
		ChainID:        s.ChainID,
		Nonce:          nonce,
		IssuedAt:       issued,
		ExpirationTime: issued + uint64(s.SignInTTL.Nanoseconds()),
	}
}

// Expired reports whether the message is no longer valid at now
func (m SignInMessage) Expired(now time.Time) bool {
	return uint64(now.UnixNano()) >= m.ExpirationTime
}

// String renders the canonical ERC-4361 style text that the wallet signs
func (m SignInMessage) String() string {
	var b strings.Builder
	b.WriteString(m.Domain)
	b.WriteString(headerSep)
	b.WriteString(m.Address.Chain().AccountLabel())
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(m.Address.String())
	b.WriteString("\n\n")
	b.WriteString(m.Statement)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %d\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %s\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s\n", formatTimestamp(m.IssuedAt))
	fmt.Fprintf(&b, "Expiration Time: %s", formatTimestamp(m.ExpirationTime))
	return b.String()
}

// ParseSignInMessage parses canonical message text back into its structured
// form. Unknown layouts, missing fields, bad timestamps and invalid addresses
// all report ErrMalformedMessage.
func ParseSignInMessage(text string) (SignInMessage, error) {
	lines := strings.Split(text, "\n")
	if len(lines) != 11 {
		return SignInMessage{}, fmt.Errorf("%w: expected 11 lines, got %d", ErrMalformedMessage, len(lines))
	}

	domain, chain, err := parseHeader(lines[0])
	if err != nil {
		return SignInMessage{}, err
	}

	addr, err := ParseAddress(chain, lines[1])
	if err != nil {
		return SignInMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if lines[2] != "" || lines[4] != "" {
		return SignInMessage{}, fmt.Errorf("%w: statement must be framed by blank lines", ErrMalformedMessage)
	}
	statement := lines[3]

	uri, err := fieldValue(lines[5], "URI: ")
	if err != nil {
		return SignInMessage{}, err
	}
	versionStr, err := fieldValue(lines[6], "Version: ")
	if err != nil {
		return SignInMessage{}, err
	}
	version, err := strconv.ParseUint(versionStr, 10, 8)
	if err != nil {
		return SignInMessage{}, fmt.Errorf("%w: version %q", ErrMalformedMessage, versionStr)
	}
	chainID, err := fieldValue(lines[7], "Chain ID: ")
	if err != nil {
		return SignInMessage{}, err
	}
	nonce, err := fieldValue(lines[8], "Nonce: ")
	if err != nil {
		return SignInMessage{}, err
	}
	issuedStr, err := fieldValue(lines[9], "Issued At: ")
	if err != nil {
		return SignInMessage{}, err
	}
	issued, err := parseTimestamp(issuedStr)
	if err != nil {
		return SignInMessage{}, err
	}
	expirationStr, err := fieldValue(lines[10], "Expiration Time: ")
	if err != nil {
		return SignInMessage{}, err
	}
	expiration, err := parseTimestamp(expirationStr)
	if err != nil {
		return SignInMessage{}, err
	}

	return SignInMessage{
		Domain:         domain,
		Address:        addr,
		Statement:      statement,
		URI:            uri,
		Version:        uint8(version),
		ChainID:        chainID,
		Nonce:          nonce,
		IssuedAt:       issued,
		ExpirationTime: expiration,
	}, nil
}

func parseHeader(line string) (domain string, chain Chain, err error) {
	idx := strings.Index(line, headerSep)
	if idx < 0 || !strings.HasSuffix(line, headerSuffix) {
		return "", "", fmt.Errorf("%w: unrecognized header %q", ErrMalformedMessage, line)
	}
	domain = line[:idx]
	if domain == "" {
		return "", "", fmt.Errorf("%w: empty domain", ErrMalformedMessage)
	}

	label := strings.TrimSuffix(line[idx+len(headerSep):], headerSuffix)
	switch label {
	case ChainEthereum.AccountLabel():
		chain = ChainEthereum
	case ChainSolana.AccountLabel():
		chain = ChainSolana
	default:
		return "", "", fmt.Errorf("%w: unsupported account type %q", ErrMalformedMessage, label)
	}
	return domain, chain, nil
}

func fieldValue(line, prefix string) (string, error) {
	v, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", fmt.Errorf("%w: missing %q field", ErrMalformedMessage, strings.TrimSuffix(prefix, ": "))
	}
	return v, nil
}

func formatTimestamp(ns uint64) string {
	return time.Unix(0, int64(ns)).UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (uint64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", ErrMalformedMessage, s)
	}
	ns := t.UnixNano()
	if ns < 0 {
		return 0, fmt.Errorf("%w: timestamp %q before the epoch", ErrMalformedMessage, s)
	}
	return uint64(ns), nil
}
