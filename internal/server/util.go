package server

import (
	"crypto/rand"
	"strings"
)

func newRoomCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > 32 {
		name = string(runes[:32])
	}
	return name
}
