// Package fairness generates the verifiable random stream that grid draws
// consume. Every draw is a pure function of (serverSeed, clientSeed, nonce),
// so a finished round can be re-derived by anyone holding the seeds.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FloatStream produces uniform floats in [0, 1) from an HMAC-SHA256 keystream.
// Each float consumes exactly 4 bytes; the stream extends itself by hashing
// successive block counters, so any count of floats is available.
type FloatStream struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	block      uint64
	pos        int
	buf        [32]byte
}

// NewFloatStream positions a stream at the start of the keystream for the
// given seed pair and nonce.
func NewFloatStream(serverSeed, clientSeed string, nonce uint64) *FloatStream {
	fs := &FloatStream{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
	}
	fs.fill()
	return fs
}

func (fs *FloatStream) fill() {
	h := hmac.New(sha256.New, []byte(fs.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", fs.clientSeed, fs.nonce, fs.block)
	copy(fs.buf[:], h.Sum(nil))
}

func (fs *FloatStream) nextByte() byte {
	if fs.pos >= len(fs.buf) {
		fs.block++
		fs.pos = 0
		fs.fill()
	}
	b := fs.buf[fs.pos]
	fs.pos++
	return b
}

// Next returns the next float in [0, 1).
func (fs *FloatStream) Next() float64 {
	// Four bytes interpreted as a base-256 fraction, matching the
	// provably-fair construction used by Stake-style games.
	result := 0.0
	div := 1.0
	for i := 0; i < 4; i++ {
		div *= 256
		result += float64(fs.nextByte()) / div
	}
	return result
}

// Floats returns count floats for the given seed pair and nonce.
func Floats(serverSeed, clientSeed string, nonce uint64, count int) []float64 {
	fs := NewFloatStream(serverSeed, clientSeed, nonce)
	out := make([]float64, count)
	for i := range out {
		out[i] = fs.Next()
	}
	return out
}

// NewServerSeed returns 32 random bytes hex-encoded.
func NewServerSeed() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("fairness: server seed generation failed: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// HashSeed returns the sha256 hex digest of a seed, safe to show to the
// player before the seed itself is disclosed.
func HashSeed(seed string) string {
	if seed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
