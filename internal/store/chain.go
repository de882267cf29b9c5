package store

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// recordHash is BLAKE2b-256 over the previous hash and every content
// field, each length-prefixed so field boundaries cannot shift.
func recordHash(prev string, r *StartupRecord) string {
	h, _ := blake2b.New256(nil)

	writeField := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], r.Version)

	writeField(prev)
	writeField(r.ID)
	writeField(r.At.UTC().Format(time.RFC3339Nano))
	writeField(string(r.Action))
	writeField(r.LibraryPath)
	h.Write(v[:])
	writeField(r.VersionString)
	writeField(r.Threading)
	writeField(r.Acknowledged)
	if r.Passed {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	writeField(strings.Join(r.Defects, ","))
	writeField(r.Error)

	return hex.EncodeToString(h.Sum(nil))
}
