package instagram

import (
	"fmt"
	"math/big"
	"strings"
)

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Shortcodes of private posts carry a suffix after the first 11 characters
// that is not part of the media id.
const mediaShortcodeLen = 11

// MediaID decodes a post shortcode into the numeric media id used by the API.
func MediaID(shortcode string) (string, error) {
	code := strings.TrimSpace(shortcode)
	if len(code) > mediaShortcodeLen {
		code = code[:mediaShortcodeLen]
	}
	if code == "" {
		return "", fmt.Errorf("empty shortcode")
	}
	id := new(big.Int)
	base := big.NewInt(int64(len(shortcodeAlphabet)))
	for _, r := range code {
		idx := strings.IndexRune(shortcodeAlphabet, r)
		if idx < 0 {
			return "", fmt.Errorf("invalid shortcode character %q", r)
		}
		id.Mul(id, base)
		id.Add(id, big.NewInt(int64(idx)))
	}
	return id.String(), nil
}
