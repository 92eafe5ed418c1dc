package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, AddressLength)
	addr := MustNewAddress(AccountPrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch: %s vs %s", decoded.String(), addr.String())
	}
	if decoded.Prefix() != AccountPrefix {
		t.Fatalf("expected account prefix, got %s", decoded.Prefix())
	}
}

func TestTokenAddressPrefix(t *testing.T) {
	raw := bytes.Repeat([]byte{0x01}, AddressLength)
	token := MustNewAddress(TokenPrefix, raw)
	decoded, err := DecodeAddress(token.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Prefix() != TokenPrefix {
		t.Fatalf("expected token prefix, got %s", decoded.Prefix())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-a-bech32-address"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestAddressIsZero(t *testing.T) {
	var empty Address
	if !empty.IsZero() {
		t.Fatalf("expected the zero value to report zero")
	}
	zeroed := MustNewAddress(AccountPrefix, make([]byte, AddressLength))
	if !zeroed.IsZero() {
		t.Fatalf("expected all-zero bytes to report zero")
	}
	set := MustNewAddress(AccountPrefix, bytes.Repeat([]byte{0x01}, AddressLength))
	if set.IsZero() {
		t.Fatalf("expected non-zero address")
	}
}

func TestMustNewAddressCopies(t *testing.T) {
	raw := bytes.Repeat([]byte{0x01}, AddressLength)
	addr := MustNewAddress(AccountPrefix, raw)
	raw[0] = 0xFF
	if addr.Bytes()[0] != 0x01 {
		t.Fatalf("expected the address to own its bytes")
	}
}

func TestPrivateKeyAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.IsZero() {
		t.Fatalf("expected a derived address")
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore key: %v", err)
	}
	if !restored.PubKey().Address().Equal(addr) {
		t.Fatalf("expected identical address after round trip")
	}
}
