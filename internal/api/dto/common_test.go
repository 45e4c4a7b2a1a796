package dto

import (
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryDataDecode_Base64Default(t *testing.T) {
	raw := []byte{0x30, 0x03, 0x02, 0x01, 0x01}
	b := &BinaryData{Data: base64.StdEncoding.EncodeToString(raw)}

	got, err := b.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	b.Encoding = "base64"
	got, err = b.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestBinaryDataDecode_PEMYieldsDER(t *testing.T) {
	raw := []byte{0x30, 0x03, 0x02, 0x01, 0x01}
	text := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: raw})
	b := &BinaryData{Data: string(text), Encoding: "pem"}

	got, err := b.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestBinaryDataDecode_Errors(t *testing.T) {
	var nilData *BinaryData
	_, err := nilData.Decode()
	assert.Error(t, err)

	_, err = (&BinaryData{Data: "not pem at all", Encoding: "pem"}).Decode()
	assert.Error(t, err)

	_, err = (&BinaryData{Data: "!!", Encoding: "base64"}).Decode()
	assert.Error(t, err)

	_, err = (&BinaryData{Data: "abcd", Encoding: "hex"}).Decode()
	assert.Error(t, err)
}
