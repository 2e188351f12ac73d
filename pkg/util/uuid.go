package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// frameNamespace scopes FrameID so equal bytes from other tools never collide.
var frameNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("lj92.frame"))

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// FrameID is a stable, content derived id for a compressed frame.
func FrameID(data []byte) string {
	return uuid.NewSHA1(frameNamespace, data).String()
}
