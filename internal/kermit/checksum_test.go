package kermit

import "testing"

func TestChecksumType1RoundTrip(t *testing.T) {
	data := []byte{toChar(10), toChar(5), TypeData, 'h', 'i'}
	check := checksumType1(data)
	if !verifyType1(data, check) {
		t.Fatal("type-1 checksum should verify against itself")
	}
	if verifyType1(append(append([]byte{}, data...), 'x'), check) {
		t.Fatal("type-1 checksum must not verify against different data")
	}
}

func TestCrc16KnownVector(t *testing.T) {
	// CRC-16/XMODEM (poly 0x1021, init 0x0000) of "123456789" is the
	// standard check value 0x31C3.
	got := crc16([]byte("123456789"))
	if got != 0x31C3 {
		t.Fatalf("crc16(123456789) = %04X, want 31C3", got)
	}
}

func TestChecksumType3RoundTrip(t *testing.T) {
	data := []byte{toChar(40), toChar(1), TypeFile, 'n', 'a', 'm', 'e', 0}
	check := checksumType3(data)
	if !verifyType3(data, check) {
		t.Fatal("type-3 checksum should verify against itself")
	}
	data[3] = 'N'
	if verifyType3(data, check) {
		t.Fatal("type-3 checksum must not verify against different data")
	}
}
