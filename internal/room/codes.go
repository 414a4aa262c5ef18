package room

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomCodeLength is the fixed length of a room code.
const RoomCodeLength = 6

// NewRoomCode generates a 6-character room code drawn from [A-Z0-9].
func NewRoomCode(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(RoomCodeLength)
	for i := 0; i < RoomCodeLength; i++ {
		b.WriteByte(roomCodeAlphabet[rng.Intn(len(roomCodeAlphabet))])
	}
	return b.String()
}

// ValidRoomCode reports whether code has the expected shape.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(roomCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// NewPlayerID generates a client-side player id: the "p_" prefix, a random
// base36 run and the current timestamp. The timestamp component keeps ids
// unique within a room for the lifetime of the session even across clients
// with poorly seeded generators.
func NewPlayerID(rng *rand.Rand, now time.Time) string {
	var b strings.Builder
	b.WriteString(PlayerIDPrefix)
	for i := 0; i < 9; i++ {
		b.WriteString(strconv.FormatInt(int64(rng.Intn(36)), 36))
	}
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	return b.String()
}

// ValidPlayerID reports whether id carries the generated-id prefix.
func ValidPlayerID(id string) bool {
	return strings.HasPrefix(id, PlayerIDPrefix) && len(id) > len(PlayerIDPrefix)
}
