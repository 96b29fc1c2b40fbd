// Package glog contains helpers for rendering values in logs.
package glog

import (
	"encoding/hex"
	"log/slog"
)

// Hex wraps v so that it renders as lowercase hex when logged.
// Block hashes and signatures are stored as plain strings or byte slices,
// which are unreadable when printed directly.
func Hex[T ~string | ~[]byte](v T) slog.LogValuer {
	return hexValue(v)
}

type hexValue []byte

func (h hexValue) LogValue() slog.Value {
	return slog.StringValue(hex.EncodeToString(h))
}
