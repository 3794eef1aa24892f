// Package encoding converts between the legacy codepages KotOR stores text in
// and UTF-8. Western releases use Windows-1252; localized releases use the
// codepage matching their TLK language id.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// ErrUndefined marks input holding a byte sequence the codepage does not
// define.
var ErrUndefined = errors.New("encoding: byte sequence undefined in codepage")

// Type is a text codepage.
type Type int

const (
	Windows1252 Type = iota // English, French, German, Italian, Spanish
	Windows1250             // Polish
	Windows1251             // Russian
	ShiftJIS
	GBK
	Big5
	EUCKR
	UTF8
	Other
)

func (t Type) String() string {
	switch t {
	case Windows1252:
		return "windows-1252"
	case Windows1250:
		return "windows-1250"
	case Windows1251:
		return "windows-1251"
	case ShiftJIS:
		return "Shift_JIS"
	case GBK:
		return "GBK"
	case Big5:
		return "Big5"
	case EUCKR:
		return "EUC-KR"
	case UTF8:
		return "UTF-8"
	default:
		return "Other"
	}
}

// Parse returns the encoding type for a codepage name.
func Parse(name string) Type {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "CP1252", "WINDOWS-1252", "WINDOWS1252", "LATIN1":
		return Windows1252
	case "CP1250", "WINDOWS-1250", "WINDOWS1250":
		return Windows1250
	case "CP1251", "WINDOWS-1251", "WINDOWS1251":
		return Windows1251
	case "SHIFTJIS", "SHIFT_JIS", "SHIFT-JIS", "SJIS", "CP932":
		return ShiftJIS
	case "GBK", "CP936", "GB2312":
		return GBK
	case "BIG5", "CP950":
		return Big5
	case "EUC-KR", "EUC_KR", "CP949":
		return EUCKR
	case "UTF8", "UTF-8":
		return UTF8
	default:
		return Other
	}
}

// ForLanguage maps a TLK language id to the codepage the game uses for it.
func ForLanguage(lang uint32) Type {
	switch lang {
	case 0, 1, 2, 3, 4: // English, French, German, Italian, Spanish
		return Windows1252
	case 5: // Polish
		return Windows1250
	case 128: // Korean
		return EUCKR
	case 129: // Traditional Chinese
		return Big5
	case 130: // Simplified Chinese
		return GBK
	case 131: // Japanese
		return ShiftJIS
	default:
		return Windows1252
	}
}

// singleByte returns the table for the Windows codepages, nil otherwise.
func (t Type) singleByte() *charmap.Charmap {
	switch t {
	case Windows1252:
		return charmap.Windows1252
	case Windows1250:
		return charmap.Windows1250
	case Windows1251:
		return charmap.Windows1251
	}
	return nil
}

func (t Type) codec() (encoding.Encoding, error) {
	if cm := t.singleByte(); cm != nil {
		return cm, nil
	}
	switch t {
	case ShiftJIS:
		return japanese.ShiftJIS, nil
	case GBK:
		return simplifiedchinese.GBK, nil
	case Big5:
		return traditionalchinese.Big5, nil
	case EUCKR:
		return korean.EUCKR, nil
	case UTF8:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %v", t)
	}
}

// Decode converts bytes in codepage t to a UTF-8 string.
//
// A byte a Windows codepage leaves undefined decodes to the C1 control of
// the same value, so Encode gives the original byte back. Multibyte
// codepages fail with ErrUndefined instead of substituting U+FFFD.
func Decode(data []byte, t Type) (string, error) {
	if cm := t.singleByte(); cm != nil {
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			r := cm.DecodeByte(b)
			if r == utf8.RuneError {
				r = rune(b)
			}
			sb.WriteRune(r)
		}
		return sb.String(), nil
	}
	enc, err := t.codec()
	if err != nil {
		return "", err
	}
	if enc == nil {
		return string(data), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decoding %v failed: %w", t, err)
	}
	if i := bytes.IndexRune(out, utf8.RuneError); i >= 0 {
		return "", fmt.Errorf("decoding %v failed near output byte %d: %w", t, i, ErrUndefined)
	}
	return string(out), nil
}

// Encode converts a UTF-8 string to codepage t. Characters the codepage
// cannot represent are an error.
func Encode(text string, t Type) ([]byte, error) {
	if cm := t.singleByte(); cm != nil {
		out := make([]byte, 0, len(text))
		for i, r := range text {
			if b, ok := cm.EncodeRune(r); ok {
				out = append(out, b)
				continue
			}
			// C1 controls stand for the bytes Decode found undefined.
			if r >= 0x80 && r <= 0x9F && cm.DecodeByte(byte(r)) == utf8.RuneError {
				out = append(out, byte(r))
				continue
			}
			return nil, fmt.Errorf("encoding to %v failed: %q at byte %d not representable", t, r, i)
		}
		return out, nil
	}
	enc, err := t.codec()
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(text), nil
	}
	out, _, err := transform.String(enc.NewEncoder(), text)
	if err != nil {
		return nil, fmt.Errorf("encoding to %v failed: %w", t, err)
	}
	return []byte(out), nil
}

// IsASCII reports whether s needs no conversion in any supported codepage.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Default is the codepage used when nothing else is known.
func Default() Type {
	return Windows1252
}
