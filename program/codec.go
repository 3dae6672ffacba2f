package program

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const publicKeyLength = 32

type borshMarshaler interface {
	MarshalWithEncoder(encoder *ag_binary.Encoder) error
}

type borshUnmarshaler interface {
	UnmarshalWithDecoder(decoder *ag_binary.Decoder) error
}

func accountDiscriminator(name string) [8]byte {
	return discriminator("account:" + name)
}

func instructionDiscriminator(name string) [8]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [8]byte {
	var d [8]byte
	h := sha256.Sum256([]byte(preimage))
	copy(d[:], h[:8])
	return d
}

// encodeWithDiscriminator writes disc followed by the borsh encoding of v
func encodeWithDiscriminator(disc [8]byte, v borshMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := ag_binary.NewBorshEncoder(buf)
	if err := encoder.WriteBytes(disc[:], false); err != nil {
		return nil, err
	}
	if v != nil {
		if err := v.MarshalWithEncoder(encoder); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeWithDiscriminator checks disc and decodes the rest of data into v.
// Trailing bytes are an error.
func decodeWithDiscriminator(data []byte, disc [8]byte, v borshUnmarshaler) error {
	if len(data) < len(disc) || !bytes.Equal(data[:len(disc)], disc[:]) {
		return fmt.Errorf("discriminator mismatch")
	}
	decoder := ag_binary.NewBorshDecoder(data[len(disc):])
	if v != nil {
		if err := v.UnmarshalWithDecoder(decoder); err != nil {
			return err
		}
	}
	if decoder.Remaining() != 0 {
		return fmt.Errorf("%d trailing bytes", decoder.Remaining())
	}
	return nil
}

func writeKey(encoder *ag_binary.Encoder, key solana.PublicKey) error {
	return encoder.WriteBytes(key[:], false)
}

func readKey(decoder *ag_binary.Decoder) (solana.PublicKey, error) {
	raw, err := decoder.ReadNBytes(publicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func writeKeys(encoder *ag_binary.Encoder, keys []solana.PublicKey) error {
	if err := encoder.WriteUint32(uint32(len(keys)), binary.LittleEndian); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeKey(encoder, k); err != nil {
			return err
		}
	}
	return nil
}

func readKeys(decoder *ag_binary.Decoder) ([]solana.PublicKey, error) {
	n, err := readLength(decoder, publicKeyLength)
	if err != nil {
		return nil, err
	}
	keys := make([]solana.PublicKey, n)
	for i := range keys {
		if keys[i], err = readKey(decoder); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func writeOptionalKey(encoder *ag_binary.Encoder, key *solana.PublicKey) error {
	if key == nil {
		return encoder.WriteBool(false)
	}
	if err := encoder.WriteBool(true); err != nil {
		return err
	}
	return writeKey(encoder, *key)
}

func readOptionalKey(decoder *ag_binary.Decoder) (*solana.PublicKey, error) {
	ok, err := decoder.ReadBool()
	if err != nil || !ok {
		return nil, err
	}
	key, err := readKey(decoder)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func writeBytes(encoder *ag_binary.Encoder, b []byte) error {
	if err := encoder.WriteUint32(uint32(len(b)), binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteBytes(b, false)
}

func readBytes(decoder *ag_binary.Decoder) ([]byte, error) {
	n, err := readLength(decoder, 1)
	if err != nil {
		return nil, err
	}
	b, err := decoder.ReadNBytes(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func readLength(decoder *ag_binary.Decoder, elemSize int) (int, error) {
	n, err := decoder.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(elemSize) > uint64(decoder.Remaining()) {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, decoder.Remaining())
	}
	return int(n), nil
}
