package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Hash identifies a block.
type Hash [32]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText renders the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Header carries block metadata.
type Header struct {
	Number     uint64    `json:"number"`
	ParentHash Hash      `json:"parent_hash"`
	Timestamp  time.Time `json:"timestamp"`
}

// Applied is an extrinsic together with its dispatch outcome.
type Applied struct {
	Extrinsic Extrinsic `json:"extrinsic"`
	Inherent  bool      `json:"inherent"`
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Block is a sealed block.
type Block struct {
	Header     Header        `json:"header"`
	Hash       Hash          `json:"hash"`
	Extrinsics []Applied     `json:"extrinsics"`
	Events     []EventRecord `json:"events"`
}

// InherentCount returns the number of inherents in b.
func (b *Block) InherentCount() int {
	n := 0
	for _, a := range b.Extrinsics {
		if a.Inherent {
			n++
		}
	}
	return n
}

func sealHash(h Header, applied []Applied) Hash {
	sum := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h.Number)
	sum.Write(buf[:])
	sum.Write(h.ParentHash[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(h.Timestamp.UnixNano()))
	sum.Write(buf[:])
	for _, a := range applied {
		sum.Write(a.Extrinsic.ID[:])
		if a.Success {
			sum.Write([]byte{1})
		} else {
			sum.Write([]byte{0})
		}
	}
	var out Hash
	copy(out[:], sum.Sum(nil))
	return out
}
